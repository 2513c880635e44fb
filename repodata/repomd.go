// Package repodata locates yum/dnf repositories, their repomd.xml and the
// updateinfo files cached from them.
package repodata

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fleure/fleure-db/dblog"
)

var archMap = map[string]string{
	"amd64":   "x86_64",
	"386":     "i386",
	"686":     "i686",
	"arm64":   "aarch64",
	"arm":     "arm",
	"ppc64":   "ppc64",
	"ppc64le": "ppc64le",
	"s390x":   "s390x",
}

// RepoMd defines /repodata/repomd.xml structure:
//
//	<repomd>
//	    <revision>1485854918</revision>
//	    <data type="primary">...</data>
//	    <data type="updateinfo">...</data>
//	</repomd>
type RepoMd struct {
	Revision string       `xml:"revision"`
	Data     []RepoMdData `xml:"data"`
}

// RepoMdData defines <data> structure:
//
//	<data type="updateinfo">
//	    <checksum type="sha256">dabe2ce5...</checksum>
//	    <open-checksum type="sha256">e1e2ffd2...</open-checksum>
//	    <location href="repodata/dabe2ce5...-updateinfo.xml.gz"/>
//	    <timestamp>1485854918</timestamp>
//	    <size>134</size>
//	    <open-size>167</open-size>
//	</data>
type RepoMdData struct {
	Type         string         `xml:"type,attr"`
	Checksum     RepoMdChecksum `xml:"checksum"`
	OpenChecksum RepoMdChecksum `xml:"open-checksum"`
	Location     RepoMdLocation `xml:"location"`
	Timestamp    string         `xml:"timestamp"`
	Size         string         `xml:"size"`
	OpenSize     string         `xml:"open-size"`
}

type RepoMdChecksum struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type RepoMdLocation struct {
	Href string `xml:"href,attr"`
}

// ParseRepoMd decodes repomd.xml data keyed by type.
func ParseRepoMd(data []byte) (map[string]RepoMdData, error) {
	var r RepoMd
	if err := xml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding repomd.xml: %w", err)
	}

	repomds := make(map[string]RepoMdData)
	for _, d := range r.Data {
		repomds[d.Type] = d
	}

	dblog.L.Debug("Revision: %s", r.Revision)
	for key, d := range repomds {
		dblog.L.Debug("Type: %s Checksum: %s %s Location: %s", key, d.Checksum.Type, d.Checksum.Value, d.Location.Href)
	}
	return repomds, nil
}

// GetMetadata fetches and parses <baseURL>/repodata/repomd.xml.
func GetMetadata(ctx context.Context, client *http.Client, baseURL string) (map[string]RepoMdData, error) {
	url := strings.TrimSuffix(baseURL, "/") + "/repodata/repomd.xml"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status code %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	return ParseRepoMd(body)
}
