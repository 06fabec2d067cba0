package js5

import (
	"encoding/binary"
	"fmt"
)

// SplitGroup splits a decoded multi-file group payload into its files.
//
// Groups that bundle several files append a table to the payload: a final
// byte giving the chunk count, preceded by chunkCount*fileCount 32-bit
// big-endian deltas that encode each file's length within each chunk. The
// body stores the chunks in order, each chunk holding one slice per file;
// SplitGroup reassembles the slices file by file.
//
// fileCount comes from archive metadata outside the payload; sound indexes
// store one file per group and never need splitting.
func SplitGroup(data []byte, fileCount int) ([][]byte, error) {
	if fileCount <= 0 {
		return nil, fmt.Errorf("%w: group declares %d files", ErrCorruptHeader, fileCount)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty group payload", ErrCorruptHeader)
	}

	chunks := int(data[len(data)-1])
	tableLen := chunks * fileCount * 4
	tableOff := len(data) - 1 - tableLen
	if tableOff < 0 {
		return nil, fmt.Errorf("%w: length table overruns %d byte payload", ErrCorruptHeader, len(data))
	}

	// The table is delta-encoded: each entry adjusts the running slice
	// length within its chunk.
	chunkLens := make([][]int, chunks)
	totals := make([]int, fileCount)
	pos := tableOff
	for c := 0; c < chunks; c++ {
		chunkLens[c] = make([]int, fileCount)
		length := 0
		for f := 0; f < fileCount; f++ {
			length += int(int32(binary.BigEndian.Uint32(data[pos:])))
			pos += 4
			if length < 0 {
				return nil, fmt.Errorf("%w: negative slice length in chunk %d", ErrCorruptHeader, c)
			}
			chunkLens[c][f] = length
			totals[f] += length
		}
	}

	sum := 0
	for _, t := range totals {
		sum += t
	}
	if sum != tableOff {
		return nil, fmt.Errorf("%w: slice lengths cover %d bytes, payload holds %d", ErrCorruptHeader, sum, tableOff)
	}

	files := make([][]byte, fileCount)
	for f, t := range totals {
		files[f] = make([]byte, 0, t)
	}
	off := 0
	for c := 0; c < chunks; c++ {
		for f := 0; f < fileCount; f++ {
			n := chunkLens[c][f]
			files[f] = append(files[f], data[off:off+n]...)
			off += n
		}
	}
	return files, nil
}
