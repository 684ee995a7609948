package object

// Type identifies the kind of object stored.
type Type string

const (
	TypeCommit Type = "commit"
	TypeTree   Type = "tree"
	TypeBlob   Type = "blob"
	TypeTag    Type = "tag"
)

// File mode bits as they appear in tree objects and the index.
const (
	ModeDir        uint32 = 0o040000
	ModeFile       uint32 = 0o100644
	ModeExecutable uint32 = 0o100755
	ModeSymlink    uint32 = 0o120000
	ModeGitlink    uint32 = 0o160000 // submodule entry
)

// Object is anything that can be stored in the object database.
type Object interface {
	Type() Type
	// Raw returns the serialized object body, without the "type len\0"
	// envelope used for hashing.
	Raw() []byte
}

// Blob holds raw file data.
type Blob struct {
	Data []byte
}

func (b *Blob) Type() Type { return TypeBlob }

func (b *Blob) Raw() []byte { return b.Data }
