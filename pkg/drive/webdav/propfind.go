package webdav

import (
	"bytes"
	"encoding/xml"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/marmos91/dittodrive/pkg/drive"
)

const propfindBody = `<?xml version="1.0" encoding="utf-8" ?>
<D:propfind xmlns:D="DAV:"><D:prop><D:getcontentlength/><D:getlastmodified/><D:getcontenttype /><D:resourcetype/></D:prop></D:propfind>`

var errEmptyBody = errors.New("empty multistatus body")

type multistatus struct {
	XMLName   xml.Name   `xml:"DAV: multistatus"`
	Responses []response `xml:"DAV: response"`
}

type response struct {
	Href      string     `xml:"DAV: href"`
	Propstats []propstat `xml:"DAV: propstat"`
}

type propstat struct {
	Prop   prop   `xml:"DAV: prop"`
	Status string `xml:"DAV: status"`
}

// Pointers distinguish an absent property from an empty one.
type prop struct {
	ContentLength *string       `xml:"DAV: getcontentlength"`
	LastModified  *string       `xml:"DAV: getlastmodified"`
	ContentType   *string       `xml:"DAV: getcontenttype"`
	ResourceType  *resourceType `xml:"DAV: resourcetype"`
}

type resourceType struct {
	Collection *struct{} `xml:"DAV: collection"`
}

// parseMultistatus decodes a PROPFIND reply. The first response describes
// the queried collection and is dropped before anything else. Responses
// that lack a usable modification date are skipped; dropped reports how
// many.
func parseMultistatus(body []byte, root string, proto drive.Protocol) (entries []drive.FileEntry, dropped int, err error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, 0, errEmptyBody
	}
	var ms multistatus
	if err := xml.Unmarshal(body, &ms); err != nil {
		return nil, 0, err
	}

	entries = make([]drive.FileEntry, 0, len(ms.Responses))
	for i, r := range ms.Responses {
		if i == 0 {
			continue
		}
		e, ok := decodeResponse(r, root, proto)
		if !ok {
			dropped++
			continue
		}
		entries = append(entries, e)
	}
	return entries, dropped, nil
}

func decodeResponse(r response, root string, proto drive.Protocol) (drive.FileEntry, bool) {
	if len(r.Propstats) == 0 {
		return drive.FileEntry{}, false
	}
	p := r.Propstats[0].Prop
	if p.LastModified == nil {
		return drive.FileEntry{}, false
	}
	modified, ok := parseHTTPDate(*p.LastModified)
	if !ok {
		return drive.FileEntry{}, false
	}

	href := strings.TrimSpace(r.Href)
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}
	// Reconcile strips one leading slash; hrefs like "/a//x.txt" carry more.
	rel := strings.Trim(drive.Reconcile(root, href), "/")

	var size int64
	if p.ContentLength != nil {
		if n, err := strconv.ParseInt(strings.TrimSpace(*p.ContentLength), 10, 64); err == nil && n > 0 {
			size = n
		}
	}

	return drive.FileEntry{
		Path:           rel,
		Identity:       drive.NewIdentity(proto, root, rel),
		IsDirectory:    p.ContentType == nil,
		LastModified:   modified,
		SizeBytes:      size,
		SourceProtocol: proto,
	}, true
}

func parseHTTPDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC1123, time.RFC1123Z} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
