package domain

// BlobID identifies a stored blob. For uploads it is the stored filename.
type BlobID string

// String returns the string representation of the BlobID.
func (id BlobID) String() string {
	return string(id)
}
