package photo

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// CompositeFilePrefix starts the file name of every saved composite.
const CompositeFilePrefix = "perfect-moment-"

// originComment prefixes the JSON origin stored in a JPEG COM segment.
const originComment = "photo-moments/composite "

const (
	markerSOI = 0xD8
	markerEOI = 0xD9
	markerSOS = 0xDA
	markerCOM = 0xFE
)

// ErrNotJPEG is returned when origin data is embedded into anything but a JPEG stream.
var ErrNotJPEG = errors.New("not a JPEG stream")

// CompositeFileName is the file name a composite is saved under.
func CompositeFileName(resultID string) string {
	return CompositeFilePrefix + resultID + ".jpg"
}

// OriginFromFileName recognises a saved composite by its file name.
func OriginFromFileName(name string) (*CompositeOrigin, bool) {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	id, ok := strings.CutPrefix(base, CompositeFilePrefix)
	if !ok {
		return nil, false
	}
	id = strings.TrimSuffix(id, path.Ext(id))
	if id == "" {
		return nil, false
	}
	return &CompositeOrigin{ResultID: id}, true
}

// EmbedOrigin returns jpegData with origin stored in a comment segment right
// after the start-of-image marker. The image data is not touched.
func EmbedOrigin(jpegData []byte, origin CompositeOrigin) ([]byte, error) {
	if len(jpegData) < 2 || jpegData[0] != 0xFF || jpegData[1] != markerSOI {
		return nil, ErrNotJPEG
	}
	payload, err := json.Marshal(origin)
	if err != nil {
		return nil, fmt.Errorf("marshal composite origin: %w", err)
	}
	size := len(originComment) + len(payload) + 2
	if size > 0xFFFF {
		return nil, fmt.Errorf("composite origin too large: %d bytes", size)
	}

	out := make([]byte, 0, len(jpegData)+size+2)
	out = append(out, 0xFF, markerSOI, 0xFF, markerCOM, byte(size>>8), byte(size))
	out = append(out, originComment...)
	out = append(out, payload...)
	return append(out, jpegData[2:]...), nil
}

// ReadOrigin scans the header segments of a JPEG stream for an embedded
// origin. Anything else, including a malformed stream, yields false.
func ReadOrigin(r io.Reader) (*CompositeOrigin, bool) {
	br := bufio.NewReader(r)
	var head [2]byte
	if _, err := io.ReadFull(br, head[:]); err != nil || head[0] != 0xFF || head[1] != markerSOI {
		return nil, false
	}

	for {
		var seg [4]byte
		if _, err := io.ReadFull(br, seg[:2]); err != nil || seg[0] != 0xFF {
			return nil, false
		}
		marker := seg[1]
		if marker == markerSOS || marker == markerEOI {
			return nil, false
		}
		if _, err := io.ReadFull(br, seg[2:]); err != nil {
			return nil, false
		}
		n := (int(seg[2])<<8 | int(seg[3])) - 2
		if n < 0 {
			return nil, false
		}
		if marker != markerCOM {
			if _, err := br.Discard(n); err != nil {
				return nil, false
			}
			continue
		}

		body := make([]byte, n)
		if _, err := io.ReadFull(br, body); err != nil {
			return nil, false
		}
		payload, ok := bytes.CutPrefix(body, []byte(originComment))
		if !ok {
			continue
		}
		var origin CompositeOrigin
		if err := json.Unmarshal(payload, &origin); err != nil || origin.ResultID == "" {
			return nil, false
		}
		return &origin, true
	}
}
