// Package domain contains the catalog entities produced by audio-book discovery.
package domain

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// BookInfo is the title and author derived from a file name.
type BookInfo struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

// NewBookInfo returns a BookInfo; both fields must be non-blank.
func NewBookInfo(title, author string) (BookInfo, error) {
	if strings.TrimSpace(title) == "" {
		return BookInfo{}, fmt.Errorf("book title is empty")
	}
	if strings.TrimSpace(author) == "" {
		return BookInfo{}, fmt.Errorf("book author is empty")
	}
	return BookInfo{Title: title, Author: author}, nil
}

// FileName rebuilds the on-disk name "<Author>-<Title><ext>" with spaces as underscores.
func (b BookInfo) FileName(ext string) string {
	return strings.ReplaceAll(b.Author, " ", "_") + "-" + strings.ReplaceAll(b.Title, " ", "_") + ext
}

// String returns "Title by Author".
func (b BookInfo) String() string {
	return b.Title + " by " + b.Author
}

// BookOwner is the network identity of the peer serving a book.
//
// An owner only exists once its address has been resolved, so Online is
// always true for values built by NewBookOwner.
type BookOwner struct {
	Address netip.Addr `json:"address"`
	Port    int        `json:"port"`
	Online  bool       `json:"online"`
}

// NewBookOwner returns an online owner for a resolved address and sharing port.
func NewBookOwner(addr netip.Addr, port int) (BookOwner, error) {
	if !addr.IsValid() {
		return BookOwner{}, fmt.Errorf("owner address is not valid")
	}
	if port < 1 || port > 65535 {
		return BookOwner{}, fmt.Errorf("owner port %d out of range", port)
	}
	return BookOwner{Address: addr, Port: port, Online: true}, nil
}

// Endpoint returns "address:port", bracketing IPv6 addresses.
func (o BookOwner) Endpoint() string {
	if !o.Address.IsValid() {
		return ""
	}
	return netip.AddrPortFrom(o.Address, uint16(o.Port)).String() //nolint:gosec // port validated by NewBookOwner
}

// String implements fmt.Stringer.
func (o BookOwner) String() string {
	return o.Endpoint() + " online=" + strconv.FormatBool(o.Online)
}

// AudioBook is one catalog entry: a discovered file with its audio
// description, filename metadata and serving peer.
type AudioBook struct {
	Path        string           `json:"path"`
	Info        BookInfo         `json:"info"`
	Owner       BookOwner        `json:"owner"`
	Description AudioDescription `json:"description"`
}

// NewAudioBook assembles a catalog entry. The entry takes ownership of the
// description's stream.
func NewAudioBook(path string, desc AudioDescription, info BookInfo, owner BookOwner) *AudioBook {
	return &AudioBook{
		Path:        path,
		Info:        info,
		Owner:       owner,
		Description: desc,
	}
}

// Close releases the entry's audio stream.
func (b *AudioBook) Close() error {
	if b == nil {
		return nil
	}
	return b.Description.Close()
}

// String implements fmt.Stringer.
func (b *AudioBook) String() string {
	return fmt.Sprintf("%s [%s %d frames] @ %s", b.Info, b.Description.Container, b.Description.LengthInFrames, b.Owner.Endpoint())
}
