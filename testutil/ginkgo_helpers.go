package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// Byf is By with formatting. Extra new line separates steps in verbose output.
func Byf(format string, args ...interface{}) {
	By(fmt.Sprintf(format, args...))
	fmt.Fprintln(GinkgoWriter)
}

// bytesWindow is max number of bytes printed on mismatch.
const bytesWindow = 1 << 10

// ExpectBytesEqual has much less overhead for large byte chunks than Equal,
// and prints only window around first mismatch.
func ExpectBytesEqual(actual, expected []byte) {
	ExpectBytesEqualWithOffset(1, actual, expected)
}

func ExpectBytesEqualWithOffset(off int, actual, expected []byte) {
	off++
	if bytes.Equal(actual, expected) {
		return
	}
	if len(actual)+len(expected) <= 2*bytesWindow {
		ExpectWithOffset(off, actual).To(Equal(expected))
		return
	}
	ExpectWithOffset(off, len(actual)).To(Equal(len(expected)), "Lengths are unequal and data is too large to print.")
	i := 0
	for actual[i] == expected[i] {
		i++
	}
	end := i + bytesWindow
	if end > len(actual) {
		end = len(actual)
	}
	ExpectWithOffset(off, actual[i:end]).To(Equal(expected[i:end]), "First %v bytes are equal.", i)
}

// TmpFileName returns path to not existing file in temp dir.
func TmpFileName() string {
	dir, err := os.MkdirTemp("", "policycache_test_")
	Expect(err).NotTo(HaveOccurred())
	return filepath.Join(dir, "file")
}
