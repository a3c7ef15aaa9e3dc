// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"io"
	"strconv"
)

// Boundary separates parts of the video feed.
const Boundary = "frame"

// ContentType is the response type of the video feed.
const ContentType = "multipart/x-mixed-replace; boundary=" + Boundary

// WritePart writes one multipart part:
//
//	--frame\r\nContent-Type: <type>\r\nContent-Length: <n>\r\n\r\n<data>\r\n
//
// It returns the number of bytes written.
func WritePart(w io.Writer, contentType string, data []byte) (int, error) {
	header := make([]byte, 0, 96)
	header = append(header, "--"+Boundary+"\r\nContent-Type: "...)
	header = append(header, contentType...)
	header = append(header, "\r\nContent-Length: "...)
	header = strconv.AppendInt(header, int64(len(data)), 10)
	header = append(header, "\r\n\r\n"...)

	total := 0
	for _, chunk := range [][]byte{header, data, []byte("\r\n")} {
		n, err := w.Write(chunk)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
