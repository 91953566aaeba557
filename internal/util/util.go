// Package util provides content hashing and mmark front matter parsing.
package util

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gomarkdown/markdown"

	"github.com/mmarkdown/mmark/v2/mast"
)

// FrontMatter is the mmark title block of an imported markdown document plus
// the project fields it may carry.
type FrontMatter struct {
	*mast.TitleData

	Tagline     string `toml:"tagline"`
	Description string `toml:"description"`
	Theme       string `toml:"theme"`
	Publish     bool   `toml:"publish"`

	// Consumed is the number of bytes of the normalized source taken by the block.
	Consumed int
	// Body is the markdown that follows the block.
	Body string
}

func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

func ContentHashString(content string) string {
	return ContentHash([]byte(content))
}

// GetFrontMatter parses a leading `%%%` TOML block.
func GetFrontMatter(md []byte) (*FrontMatter, error) {
	md = markdown.NormalizeNewlines(md)
	md = bytes.TrimLeft(md, "\n \t\r")

	delimiter := []byte("%%%")

	if len(md) < 2*len(delimiter) {
		return nil, fmt.Errorf("invalid front matter format")
	}

	first := bytes.Index(md[:len(delimiter)+1], delimiter)
	if first == -1 {
		return nil, fmt.Errorf("invalid front matter format")
	}

	second := bytes.Index(md[first+len(delimiter):], delimiter)
	if second == -1 {
		return nil, fmt.Errorf("invalid front matter format")
	}

	end := second + 2*len(delimiter) + 1
	if end > len(md) {
		return nil, fmt.Errorf("invalid front matter format")
	}

	block := md[len(delimiter) : end-len(delimiter)-1]
	info := &FrontMatter{
		TitleData: &mast.TitleData{},
	}

	if _, err := toml.Decode(string(block), info); err != nil {
		return nil, fmt.Errorf("failed to decode front matter: %w", err)
	}

	if info.Language == "" {
		info.Language = "en"
	}
	info.Consumed = end
	info.Body = strings.TrimLeft(string(md[end:]), "\n")

	return info, nil
}
