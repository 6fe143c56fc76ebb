//go:build ignore

// This program generates a test RSC file for unit tests.
// Run with: go run generate_rsc.go
package main

import (
	"bytes"
	"encoding/binary"
	"os"
)

func main() {
	// Three tiles: 8x8, 16x12 and 8x4. Heights are stored in pixels, widths
	// in groups of 8 columns.
	tiles := []struct {
		height   int
		widthRaw int
	}{
		{8, 1},
		{12, 2},
		{4, 1},
	}

	var records [][]byte
	for n, t := range tiles {
		headerLength := (t.height + 5) &^ 3
		rec := make([]byte, headerLength)
		rec[0] = byte(t.height)
		rec[1] = byte(t.widthRaw)
		for i := 0; i < t.height*t.widthRaw*8; i++ {
			rec = append(rec, byte(n*64+i))
		}
		records = append(records, rec)
	}

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint16(len(records)))
	offset := 2 + 4*len(records)
	for _, rec := range records {
		binary.Write(&buf, binary.LittleEndian, uint32(offset))
		offset += len(rec)
	}
	for _, rec := range records {
		buf.Write(rec)
	}

	if err := os.WriteFile("test.RSC", buf.Bytes(), 0644); err != nil {
		panic(err)
	}
}
