package chunk

// Settings configures passage segmentation.
type Settings struct {
	// Size is the maximum length, in bytes, of a passage core before overlap
	// is applied.
	Size int
	// Overlap is the number of trailing bytes of each passage prepended to
	// its successor.
	Overlap int
}
