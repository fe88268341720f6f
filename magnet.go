package qbt

import (
	"net/url"
	"strings"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/pkg/errors"
)

// MagnetLink is the decoded form of a magnet URI.
type MagnetLink struct {
	// Hash is the btih value as written in the link (hex or base32).
	Hash string
	// InfoHash is the v1 info-hash as 40 lowercase hex characters.
	InfoHash         string
	DisplayName      string
	Trackers         []string
	ExactLength      string
	ExactSource      string
	Keywords         string
	AcceptableSource string
}

// ParseMagnetLink extracts information from a magnet link
func ParseMagnetLink(magnetURI string) (*MagnetLink, error) {
	if !strings.HasPrefix(magnetURI, "magnet:?") {
		return nil, errors.New("invalid magnet link format")
	}

	values, err := url.ParseQuery(strings.TrimPrefix(magnetURI, "magnet:?"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse magnet link query")
	}

	magnet := &MagnetLink{
		DisplayName:      values.Get("dn"),
		Trackers:         values["tr"],
		ExactLength:      values.Get("xl"),
		ExactSource:      values.Get("xs"),
		Keywords:         values.Get("kt"),
		AcceptableSource: values.Get("as"),
	}

	for _, xt := range values["xt"] {
		if strings.HasPrefix(xt, "urn:btih:") {
			magnet.Hash = strings.TrimPrefix(xt, "urn:btih:")
			break
		}
	}
	if magnet.Hash == "" {
		return magnet, nil
	}

	m, err := metainfo.ParseMagnetUri(magnetURI)
	if err != nil {
		return nil, errors.Wrap(err, "invalid magnet info-hash")
	}
	magnet.InfoHash = m.InfoHash.HexString()
	return magnet, nil
}
