// Chunk walking adapted from https://github.com/parsiya/Go-Security/blob/master/png-tests/png-chunk-extraction.go

package png_metadata

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// 89 50 4E 47 0D 0A 1A 0A
var pngHeader = "\x89\x50\x4E\x47\x0D\x0A\x1A\x0A"
var iHDRLength = 13

// ErrNoMetadata is returned when the file carries no generation text chunks.
var ErrNoMetadata = errors.New("no generation metadata found")

func uInt32ToInt(buf []byte) (int, error) {
	if len(buf) == 0 || len(buf) > 4 {
		return 0, errors.New("invalid buffer")
	}

	return int(binary.BigEndian.Uint32(buf)), nil
}

// Each chunk starts with a uint32 length (big endian), then 4 byte name,
// then data and finally the CRC32 of the chunk data.
type chunk struct {
	Length int
	CType  string
	Data   []byte
	Crc32  []byte
}

func (c *chunk) populate(r io.Reader) error {
	buf := make([]byte, 4)

	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}

	var err error

	c.Length, err = uInt32ToInt(buf)
	if err != nil {
		return errors.New("cannot convert length to int")
	}

	if _, err = io.ReadFull(r, buf); err != nil {
		return err
	}

	c.CType = string(buf)

	tmp := make([]byte, c.Length)

	if _, err = io.ReadFull(r, tmp); err != nil {
		return err
	}

	c.Data = tmp

	// CRC32 is read but not verified.
	if _, err = io.ReadFull(r, buf); err != nil {
		return err
	}

	c.Crc32 = buf

	return nil
}

type png struct {
	Width  int
	Height int
	chunks []*chunk
}

// parseIHDR validates the first chunk enough to trust the rest of the file.
// https://golang.org/src/image/png/reader.go?#L142 is your friend.
func (p *png) parseIHDR(iHDR *chunk) error {
	if iHDR.CType != "IHDR" {
		return errors.New("first chunk is not IHDR")
	}
	if iHDR.Length != iHDRLength {
		return fmt.Errorf("invalid IHDR length: got %d - expected %d", iHDR.Length, iHDRLength)
	}

	tmp := iHDR.Data

	var err error

	p.Width, err = uInt32ToInt(tmp[0:4])
	if err != nil || p.Width <= 0 {
		return fmt.Errorf("invalid width in IHDR - got %x", tmp[0:4])
	}

	p.Height, err = uInt32ToInt(tmp[4:8])
	if err != nil || p.Height <= 0 {
		return fmt.Errorf("invalid height in IHDR - got %x", tmp[4:8])
	}

	return nil
}

// CommentInfo is the JSON document NovelAI stores in the Comment text chunk.
type CommentInfo struct {
	Prompt        string  `json:"prompt"`
	Steps         int     `json:"steps"`
	Height        int     `json:"height"`
	Width         int     `json:"width"`
	Scale         float64 `json:"scale"`
	Seed          int64   `json:"seed"`
	Sampler       string  `json:"sampler"`
	NoiseSchedule string  `json:"noise_schedule"`
	UC            string  `json:"uc"`
}

// GenerationInfo is everything recoverable from a generated image's text
// chunks. Comment is nil when the chunk is absent or not valid JSON.
type GenerationInfo struct {
	Title       string
	Software    string
	Source      string
	Description string
	Width       int
	Height      int
	Comment     *CommentInfo
}

type extractorImpl struct {
	png *png
}

type Config struct {
	PngData []byte
}

func New(cfg Config) (Extractor, error) {
	if cfg.PngData == nil {
		return nil, errors.New("png data is nil")
	}

	header := make([]byte, 8)

	imgFile := bytes.NewReader(cfg.PngData)

	if _, err := io.ReadFull(imgFile, header); err != nil {
		return nil, err
	}

	if string(header) != pngHeader {
		return nil, errors.New("wrong PNG header")
	}

	var pngImage png

	var err error

	for err == nil {
		var c chunk

		err = (&c).populate(imgFile)

		// Drop the last empty chunk.
		if c.CType != "" {
			pngImage.chunks = append(pngImage.chunks, &c)
		}
	}

	if len(pngImage.chunks) == 0 {
		return nil, errors.New("no chunks found")
	}

	if err = pngImage.parseIHDR(pngImage.chunks[0]); err != nil {
		return nil, err
	}

	return &extractorImpl{
		png: &pngImage,
	}, nil
}

// ExtractGenerationInfo collects the tEXt chunks NovelAI embeds in its
// output. Each chunk is keyword\0text; the Comment keyword carries the
// generation parameters as JSON.
func (e *extractorImpl) ExtractGenerationInfo() (*GenerationInfo, error) {
	texts := make(map[string]string)

	for _, c := range e.png.chunks {
		if c.CType != "tEXt" {
			continue
		}

		keyword, text, found := strings.Cut(string(c.Data), "\x00")
		if !found {
			continue
		}

		texts[keyword] = text
	}

	if len(texts) == 0 {
		return nil, ErrNoMetadata
	}

	info := &GenerationInfo{
		Title:       texts["Title"],
		Software:    texts["Software"],
		Source:      texts["Source"],
		Description: texts["Description"],
		Width:       e.png.Width,
		Height:      e.png.Height,
	}

	if comment, ok := texts["Comment"]; ok {
		var parsed CommentInfo
		if err := json.Unmarshal([]byte(comment), &parsed); err == nil {
			info.Comment = &parsed
		}
	}

	if info.Description == "" && info.Comment == nil {
		return nil, ErrNoMetadata
	}

	return info, nil
}
