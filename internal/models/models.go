package models

type NodeType int16

const (
	NodeTypeDir  NodeType = 0 // VTFS_NODE_DIR
	NodeTypeFile NodeType = 1 // VTFS_NODE_FILE
)

type NodeMeta struct {
	Ino       uint64   `json:"ino"`
	ParentIno uint64   `json:"parent_ino"`
	Type      NodeType `json:"type"`
	Mode      uint32   `json:"mode"` // umode_t
	Size      int64    `json:"size"`
	Nlink     uint32   `json:"nlink"`
}

type Dirent struct {
	Name   string   `json:"name"`
	Ino    uint64   `json:"ino"`
	Type   NodeType `json:"type"`
	Offset uint64   `json:"offset"` // position of the entry in the listing
}
