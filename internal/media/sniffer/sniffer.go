package sniffer

import (
	"bytes"
	"errors"
	"io"
	"strings"
)

type MediaType string

const (
	TypeMP4  MediaType = "mp4"
	TypeMOV  MediaType = "mov"
	Type3GP  MediaType = "3gp"
	TypeWEBM MediaType = "webm"
	TypeMKV  MediaType = "mkv"
)

var ErrUnknownType = errors.New("unknown media type")

type Result struct {
	Type MediaType
	MIME string
}

// Ext returns the file extension including the leading dot.
func (r Result) Ext() string {
	return "." + string(r.Type)
}

func Detect(r io.Reader) (Result, []byte, error) {
	head := make([]byte, 64)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Result{}, nil, err
	}
	head = head[:n]

	result, err := DetectHead(head)
	return result, head, err
}

func DetectHead(head []byte) (Result, error) {
	if len(head) == 0 {
		return Result{}, ErrUnknownType
	}

	if brand, ok := ftypBrand(head); ok {
		switch {
		case brand == "qt  ":
			return Result{Type: TypeMOV, MIME: "video/quicktime"}, nil
		case strings.HasPrefix(brand, "3g"):
			return Result{Type: Type3GP, MIME: "video/3gpp"}, nil
		case isImageBrand(brand):
			return Result{}, ErrUnknownType
		default:
			return Result{Type: TypeMP4, MIME: "video/mp4"}, nil
		}
	}

	if isEBML(head) {
		if bytes.Contains(head, []byte("webm")) {
			return Result{Type: TypeWEBM, MIME: "video/webm"}, nil
		}
		return Result{Type: TypeMKV, MIME: "video/x-matroska"}, nil
	}

	return Result{}, ErrUnknownType
}

// ftypBrand reads the major brand of an ISO base media file.
func ftypBrand(head []byte) (string, bool) {
	if len(head) < 12 || string(head[4:8]) != "ftyp" {
		return "", false
	}
	return string(head[8:12]), true
}

func isImageBrand(brand string) bool {
	switch brand {
	case "avif", "avis", "heic", "heix", "mif1", "msf1":
		return true
	}
	return false
}

func isEBML(head []byte) bool {
	return len(head) >= 4 &&
		head[0] == 0x1a &&
		head[1] == 0x45 &&
		head[2] == 0xdf &&
		head[3] == 0xa3
}
