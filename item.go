package policycache

import "fmt"

type ItemMeta struct {
	Key   string
	Flags uint32
	Bytes int
}

// Item is value stored in cache. Nil *Item is absent value, and it is never stored.
// Stored items are immutable: set replaces whole item.
type Item struct {
	ItemMeta
	Data []byte
}

func (i *Item) GoString() string {
	return fmt.Sprintf("{%#v, Data:%q}", i.ItemMeta, i.Data)
}

// String is used in cache debug dumps.
func (i *Item) String() string {
	return fmt.Sprintf("%v bytes, flags %v", i.Bytes, i.Flags)
}
