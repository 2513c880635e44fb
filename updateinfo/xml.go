package updateinfo

import (
	"encoding/xml"
	"fmt"
	"io"
)

// RawUpdates is updateinfo.xml as found in repodata:
//
//	<updates>
//	    <update from="security@redhat.com" status="final" type="security" version="1">
//	        <id>RHSA-2016:2872</id>
//	        <issued date="2016-12-06 00:00:00"/>
//	        <references>...</references>
//	        <pkglist><collection short="rhel-7-server-rpms">...</collection></pkglist>
//	    </update>
//	</updates>
type RawUpdates struct {
	XMLName xml.Name    `xml:"updates" json:"-"`
	Updates []RawUpdate `xml:"update" json:"updates"`
}

type RawUpdate struct {
	From            string          `xml:"from,attr" json:"from,omitempty"`
	Status          string          `xml:"status,attr" json:"status,omitempty"`
	Type            string          `xml:"type,attr" json:"type,omitempty"`
	Version         string          `xml:"version,attr" json:"version,omitempty"`
	ID              string          `xml:"id" json:"id"`
	Title           string          `xml:"title" json:"title,omitempty"`
	Issued          RawDate         `xml:"issued" json:"issued"`
	Updated         RawDate         `xml:"updated" json:"updated"`
	Rights          string          `xml:"rights" json:"rights,omitempty"`
	Release         string          `xml:"release" json:"release,omitempty"`
	Pushcount       string          `xml:"pushcount" json:"pushcount,omitempty"`
	Severity        string          `xml:"severity" json:"severity,omitempty"`
	Summary         string          `xml:"summary" json:"summary,omitempty"`
	Description     string          `xml:"description" json:"description,omitempty"`
	Solution        string          `xml:"solution" json:"solution,omitempty"`
	RebootSuggested string          `xml:"reboot_suggested" json:"reboot_suggested,omitempty"`
	References      []RawReference  `xml:"references>reference" json:"references,omitempty"`
	Collections     []RawCollection `xml:"pkglist>collection" json:"pkglist,omitempty"`
}

type RawDate struct {
	Date string `xml:"date,attr" json:"date"`
}

type RawReference struct {
	Href  string `xml:"href,attr" json:"href,omitempty"`
	ID    string `xml:"id,attr" json:"id,omitempty"`
	Title string `xml:"title,attr" json:"title,omitempty"`
	Type  string `xml:"type,attr" json:"type,omitempty"`
}

type RawCollection struct {
	Short    string       `xml:"short,attr" json:"short,omitempty"`
	Name     string       `xml:"name" json:"name,omitempty"`
	Packages []RawPackage `xml:"package" json:"packages,omitempty"`
}

type RawPackage struct {
	Name            string `xml:"name,attr" json:"name"`
	Epoch           string `xml:"epoch,attr" json:"epoch"`
	Version         string `xml:"version,attr" json:"version"`
	Release         string `xml:"release,attr" json:"release"`
	Arch            string `xml:"arch,attr" json:"arch"`
	Src             string `xml:"src,attr" json:"src,omitempty"`
	Filename        string `xml:"filename" json:"filename,omitempty"`
	RebootSuggested string `xml:"reboot_suggested" json:"reboot_suggested,omitempty"`
}

// Parse decodes an uncompressed updateinfo.xml stream.
func Parse(r io.Reader) (*RawUpdates, error) {
	var raw RawUpdates

	decoder := xml.NewDecoder(r)
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding updateinfo.xml: %w", err)
	}
	return &raw, nil
}
