package filesafe

// ShouldInline reports whether a file of sizeBytes may have its content
// stored inline in FileUpload.Content. Files over the cap must be
// accessed via files_peek/files_range/files_search instead.
func ShouldInline(sizeBytes int64, maxInlineBytes int64) bool {
	return sizeBytes <= maxInlineBytes
}

// Range clamps a requested [offset, offset+length) byte range to a
// file's actual size, so files_range never reads past EOF.
func Range(offset, length, size int64) (start, end int64) {
	if offset < 0 {
		offset = 0
	}
	if offset > size {
		offset = size
	}
	end = offset + length
	if length <= 0 || end > size {
		end = size
	}
	return offset, end
}
