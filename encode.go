package bridge

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"mime"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// Encoder encodes response values to a wire format.
type Encoder interface {
	ContentType() string
	Encode(w io.Writer, v any) error
}

// Decoder decodes request bodies from a wire format.
type Decoder interface {
	ContentType() string
	Decode(r io.Reader, v any) error
}

var jsonConfig = sonic.ConfigStd

// jsonCodec implements both Encoder and Decoder for JSON. It also accepts
// structured-syntax "+json" media types and application/json-seq.
type jsonCodec struct{}

func (jsonCodec) ContentType() string { return "application/json" }

// Encode writes v without a trailing newline.
func (c jsonCodec) Encode(w io.Writer, v any) error {
	b, err := c.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func (jsonCodec) Decode(r io.Reader, v any) error {
	err := jsonConfig.NewDecoder(r).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (jsonCodec) Marshal(v any) ([]byte, error) { return jsonConfig.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return jsonConfig.Unmarshal(data, v) }

// xmlCodec implements both Encoder and Decoder for XML.
type xmlCodec struct{}

func (xmlCodec) ContentType() string { return "application/xml" }

func (xmlCodec) Encode(w io.Writer, v any) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	return xml.NewEncoder(w).Encode(v)
}

func (xmlCodec) Decode(r io.Reader, v any) error {
	err := xml.NewDecoder(r).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// codecRegistry holds all registered encoders and decoders.
// Index 0 is always JSON (the default).
type codecRegistry struct {
	encoders []Encoder
	decoders []Decoder
}

// newCodecRegistry builds a registry with JSON first, XML second, then any
// user-registered encoders and decoders.
func newCodecRegistry(userEncoders []Encoder, userDecoders []Decoder) *codecRegistry {
	cr := &codecRegistry{
		encoders: make([]Encoder, 0, 2+len(userEncoders)),
		decoders: make([]Decoder, 0, 2+len(userDecoders)),
	}
	cr.encoders = append(cr.encoders, jsonCodec{}, xmlCodec{})
	cr.encoders = append(cr.encoders, userEncoders...)
	cr.decoders = append(cr.decoders, jsonCodec{}, xmlCodec{})
	cr.decoders = append(cr.decoders, userDecoders...)
	return cr
}

// negotiate picks an encoder based on the Accept header value. Empty,
// wildcard and unsatisfiable Accept values all resolve to JSON.
func (cr *codecRegistry) negotiate(accept string) Encoder {
	if accept == "" {
		return cr.encoders[0]
	}

	var (
		best    Encoder
		quality = -1.0
	)

	for part := range strings.SplitSeq(accept, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}

		q := 1.0
		if qs, ok := params["q"]; ok {
			if parsed, err := strconv.ParseFloat(qs, 64); err == nil {
				q = parsed
			}
		}

		if q <= quality || q == 0 {
			continue
		}

		if mediaType == "*/*" {
			best, quality = cr.encoders[0], q
			continue
		}

		for _, enc := range cr.encoders {
			if enc.ContentType() == mediaType {
				best, quality = enc, q
				break
			}
		}
	}

	if best == nil {
		return cr.encoders[0]
	}
	return best
}

// decoderFor returns the decoder matching the given Content-Type, or false
// when no registered decoder accepts it.
func (cr *codecRegistry) decoderFor(contentType string) (Decoder, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, false
	}

	for _, dec := range cr.decoders {
		if mediaMatches(dec.ContentType(), mediaType) {
			return dec, true
		}
	}
	return nil, false
}

// mediaMatches reports whether a codec registered for codecType handles
// mediaType, honoring structured syntax suffixes.
func mediaMatches(codecType, mediaType string) bool {
	if codecType == mediaType {
		return true
	}
	switch codecType {
	case "application/json":
		return mediaType == "application/json-seq" || strings.HasSuffix(mediaType, "+json")
	case "application/xml":
		return mediaType == "text/xml" || strings.HasSuffix(mediaType, "+xml")
	}
	return false
}

// IsJSONContentType reports whether contentType is JSON or a JSON-based type.
func IsJSONContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaMatches("application/json", mediaType)
}

func encodeValue(enc Encoder, v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := enc.Encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
