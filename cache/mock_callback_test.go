package cache

import (
	. "github.com/onsi/ginkgo"
	"github.com/stretchr/testify/mock"
)

type MockDiscard struct {
	mock.Mock
}

func (m *MockDiscard) Discard(key string, value string) {
	By("Discard " + key)
	m.Called(key, value)
}

// ExpectDiscard expects one discard of entry with value equal to key.
func (m *MockDiscard) ExpectDiscard(keys ...string) {
	for _, k := range keys {
		m.On("Discard", k, k).Once()
	}
}
