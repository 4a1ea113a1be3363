package multipart

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildMultipartBody(t *testing.T, boundary string, parts map[string]string, etags map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.SetBoundary(boundary))

	for name, value := range parts {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="` + name + `"`}
		if etag, ok := etags[name]; ok {
			h["Etag"] = []string{etag}
		}
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(value))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestCodec_Parse_ExtractsNamespaceAndEtag(t *testing.T) {
	boundary := "testboundary"
	body := buildMultipartBody(t, boundary,
		map[string]string{"wifi": "wifi-payload", "lan": "lan-payload"},
		map[string]string{"wifi": "7"},
	)

	c := NewCodec()
	entries, err := c.Parse(boundary, body)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byName := map[string]string{}
	etagByName := map[string]string{}
	for _, e := range entries {
		byName[e.NameSpace] = string(e.Data)
		etagByName[e.NameSpace] = e.Etag
	}
	require.Equal(t, "wifi-payload", byName["wifi"])
	require.Equal(t, "lan-payload", byName["lan"])
	require.Equal(t, "7", etagByName["wifi"])
	require.Equal(t, "", etagByName["lan"])
}

func TestCodec_Parse_MalformedEtagDefaultsEmpty(t *testing.T) {
	boundary := "testboundary"
	body := buildMultipartBody(t, boundary,
		map[string]string{"wifi": "payload"},
		map[string]string{"wifi": "not-a-number"},
	)

	c := NewCodec()
	entries, err := c.Parse(boundary, body)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "", entries[0].Etag)
}

func TestCodec_AppendedDoc_IsValidBase64AndDecodesToLayout(t *testing.T) {
	c := NewCodec()
	out := c.AppendedDoc("wifi", 42, []byte("payload"))

	decoded, err := base64.StdEncoding.DecodeString(string(out))
	require.NoError(t, err)

	r := bytes.NewReader(decoded)

	var nameLen uint32
	require.NoError(t, binary.Read(r, binary.BigEndian, &nameLen))
	name := make([]byte, nameLen)
	_, err = r.Read(name)
	require.NoError(t, err)
	require.Equal(t, "wifi", string(name))

	var etag uint32
	require.NoError(t, binary.Read(r, binary.BigEndian, &etag))
	require.Equal(t, uint32(42), etag)

	var valLen uint32
	require.NoError(t, binary.Read(r, binary.BigEndian, &valLen))
	value := make([]byte, valLen)
	_, err = r.Read(value)
	require.NoError(t, err)
	require.Equal(t, "payload", string(value))
}
