/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package assets

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// IsInline reports whether src embeds its bytes or points at a browser-local
// object, in which case it must not be persisted with a layout.
func IsInline(src string) bool {
	return strings.HasPrefix(src, "data:") || strings.HasPrefix(src, "blob:")
}

// DataURI encodes data as a base64 data URI. The content type is sniffed when empty.
func DataURI(contentType string, data []byte) string {
	if contentType == "" {
		contentType = SniffContentType(data)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI returns the bytes and media type of a data URI.
func DecodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", errors.New("not a data uri")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", errors.New("data uri without payload")
	}
	isBase64 := false
	if m, found := strings.CutSuffix(meta, ";base64"); found {
		meta, isBase64 = m, true
	}
	contentType := meta
	if contentType == "" {
		contentType = "text/plain;charset=US-ASCII"
	}
	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// some encoders drop padding
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
			if err != nil {
				return nil, "", fmt.Errorf("decode data uri: %w", err)
			}
		}
		return data, contentType, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data uri: %w", err)
	}
	return []byte(text), contentType, nil
}

// SniffContentType guesses the media type of an asset. SVG is recognised
// explicitly since http.DetectContentType reports it as text.
func SniffContentType(data []byte) string {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	if strings.Contains(strings.ToLower(string(head)), "<svg") {
		return "image/svg+xml"
	}
	return http.DetectContentType(data)
}

// ExtensionFor returns a file extension (with dot) for a media type.
func ExtensionFor(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = contentType
	}
	switch mt {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	}
	if exts, _ := mime.ExtensionsByType(mt); len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

// ContentTypeFor guesses a media type from a file name, falling back to sniffing data.
func ContentTypeFor(name string, data []byte) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		if ct := mime.TypeByExtension(strings.ToLower(name[i:])); ct != "" {
			return ct
		}
	}
	return SniffContentType(data)
}
