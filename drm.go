package epub2md

import (
	"encoding/xml"
	"fmt"
	"strings"
)

const (
	encryptionFilePath = "META-INF/encryption.xml"
	sinfFilePath       = "META-INF/sinf.xml" // Apple FairPlay marker
)

// Font obfuscation algorithm URIs. These do not constitute DRM.
var fontObfuscationAlgorithms = map[string]bool{
	"http://www.idpf.org/2008/embedding": true,
	"http://ns.adobe.com/pdf/enc#RC":     true,
}

// Known DRM namespaces found in algorithm URIs or KeyInfo content.
var drmSignatures = []struct {
	uri    string
	scheme string
}{
	{"http://ns.adobe.com/adept", "Adobe ADEPT"},
	{"http://readium.org/2014/01/lcp", "Readium LCP"},
}

type xmlEncryption struct {
	XMLName       xml.Name           `xml:"encryption"`
	EncryptedData []xmlEncryptedData `xml:"EncryptedData"`
}

type xmlEncryptedData struct {
	EncryptionMethod struct {
		Algorithm string `xml:"Algorithm,attr"`
	} `xml:"EncryptionMethod"`
	KeyInfo struct {
		InnerXML string `xml:",innerxml"`
	} `xml:"KeyInfo"`
}

// checkDRM inspects the archive's encryption descriptors.
//
// It returns fontObfuscation=true when only font obfuscation entries are
// present, and an error matching ErrContainer and ErrDRMProtected when real
// encryption is declared.
func checkDRM(a *Archive) (fontObfuscation bool, err error) {
	if a.Has(sinfFilePath) {
		return false, drmError("Apple FairPlay (sinf.xml)")
	}
	if !a.Has(encryptionFilePath) {
		return false, nil
	}

	data, err := a.ReadEntry(encryptionFilePath)
	if err != nil {
		return false, fmt.Errorf("epub: read %s: %w: %w", encryptionFilePath, ErrContainer, err)
	}

	var enc xmlEncryption
	if err := xml.Unmarshal(stripBOM(data), &enc); err != nil {
		// Unreadable descriptor: assume the worst.
		return false, drmError("unparsable encryption.xml")
	}

	for _, ed := range enc.EncryptedData {
		algo := ed.EncryptionMethod.Algorithm
		if fontObfuscationAlgorithms[algo] {
			fontObfuscation = true
			continue
		}
		if scheme := drmScheme(algo + " " + ed.KeyInfo.InnerXML); scheme != "" {
			return false, drmError(scheme)
		}
		return false, drmError("encrypted resources (" + algo + ")")
	}
	return fontObfuscation, nil
}

// drmScheme names the DRM system whose namespace appears in s.
func drmScheme(s string) string {
	for _, sig := range drmSignatures {
		if strings.Contains(s, sig.uri) {
			return sig.scheme
		}
	}
	return ""
}
