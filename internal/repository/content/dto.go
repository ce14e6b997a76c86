package content

import (
	"encoding/binary"
	"math"
	"strconv"
	"time"

	domcontent "github.com/blinderchief/visiolingua/internal/domain/content"
	"github.com/blinderchief/visiolingua/internal/domain/space"
)

// Hash field names of a stored record.
const (
	fieldUserID       = "user_id"
	fieldKind         = "kind"
	fieldLang         = "lang"
	fieldTimestamp    = "timestamp"
	fieldContent      = "content"
	fieldOriginalName = "original_name"
	fieldImage        = "image"
)

// payloadFields are returned by searches: everything except vectors.
var payloadFields = []string{
	fieldUserID, fieldKind, fieldLang, fieldTimestamp, fieldContent, fieldOriginalName, fieldImage,
}

// buildHashFields converts a domain Record into a flat map[string]string for HSET.
// A missing timestamp is not written.
func buildHashFields(rec domcontent.Record) map[string]string {
	m := make(map[string]string, len(payloadFields)+len(space.All))
	m[fieldUserID] = rec.UserID()
	m[fieldKind] = string(rec.Kind())
	m[fieldLang] = rec.Lang()
	m[fieldContent] = rec.Content()
	if rec.HasTimestamp() {
		m[fieldTimestamp] = strconv.FormatInt(rec.Timestamp().UnixMilli(), 10)
	}
	if name := rec.OriginalName(); name != "" {
		m[fieldOriginalName] = name
	}
	if img := rec.ImageBytes(); len(img) > 0 {
		m[fieldImage] = string(img)
	}
	for _, sp := range space.All {
		if v := rec.Vector(sp); len(v) > 0 {
			m[sp.Field()] = vectorToBytes(v)
		}
	}
	return m
}

// parseHashFields converts a flat hash map back into a domain Record.
// Vector fields are hydrated only when present.
func parseHashFields(id string, m map[string]string) domcontent.Record {
	var body domcontent.Body
	if domcontent.Kind(m[fieldKind]) == domcontent.KindImage {
		img := domcontent.Image{Caption: m[fieldContent]}
		if raw := m[fieldImage]; raw != "" {
			img.Bytes = []byte(raw)
		}
		body = img
	} else {
		body = domcontent.Text{Body: m[fieldContent]}
	}

	var vectors map[space.Space][]float32
	for _, sp := range space.All {
		raw, ok := m[sp.Field()]
		if !ok {
			continue
		}
		if v := bytesToVector(raw); v != nil {
			if vectors == nil {
				vectors = make(map[space.Space][]float32, len(space.All))
			}
			vectors[sp] = v
		}
	}

	return domcontent.Reconstruct(
		id, m[fieldUserID], m[fieldLang], m[fieldOriginalName],
		parseTimestamp(m[fieldTimestamp]), body, vectors,
	)
}

// parseTimestamp reads unix milliseconds; anything unparsable is a missing timestamp.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return time.Time{}
		}
		ms = int64(f)
	}
	return time.UnixMilli(ms).UTC()
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
