package capture

// bgraToRGB converts a mapped BGRA surface into a packed 3-byte RGB buffer.
// rowPitch is the byte stride of one source row and may exceed width*4 due
// to GPU alignment padding; the padding bytes are skipped, never copied.
func bgraToRGB(src []byte, width, height, rowPitch int) []byte {
	dst := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		srcRow := src[y*rowPitch:]
		dstRow := dst[y*width*3:]
		for x := 0; x < width; x++ {
			si := x * 4
			di := x * 3
			dstRow[di+0] = srcRow[si+2] // R
			dstRow[di+1] = srcRow[si+1] // G
			dstRow[di+2] = srcRow[si+0] // B
		}
	}
	return dst
}

// cropRGB extracts the sub-rectangle (x, y, x+w, y+h) from a packed RGB
// buffer of the given source width. The caller guarantees the rectangle is
// inside the source; resolvers clamp before backends run.
func cropRGB(src []byte, srcWidth, x, y, w, h int) []byte {
	dst := make([]byte, w*h*3)
	for row := 0; row < h; row++ {
		srcOff := ((y+row)*srcWidth + x) * 3
		copy(dst[row*w*3:(row+1)*w*3], src[srcOff:srcOff+w*3])
	}
	return dst
}
