package definition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/modinput/pkg/xmlcodec"
)

const twoStanzaInput = `<input>
  <server_host>tiny</server_host>
  <server_uri>https://127.0.0.1:8089</server_uri>
  <checkpoint_dir>/opt/splunk/var/lib/splunk/modinputs</checkpoint_dir>
  <session_key>123102983109283019283</session_key>
  <configuration>
    <stanza name="foo">
      <param name="p">1</param>
    </stanza>
    <stanza name="bar">
      <param_list name="q">
        <value>x</value>
        <value>y</value>
      </param_list>
    </stanza>
  </configuration>
</input>`

func mustParse(t *testing.T, doc string) *xmlcodec.Node {
	t.Helper()
	n, err := xmlcodec.Unmarshal([]byte(doc))
	require.NoError(t, err)
	return n
}

func TestDecodeBundle_TwoStanzas(t *testing.T) {
	b, err := DecodeBundle(mustParse(t, twoStanzaInput))
	require.NoError(t, err)

	assert.Equal(t, Metadata{
		ServerHost:    "tiny",
		ServerURI:     "https://127.0.0.1:8089",
		CheckpointDir: "/opt/splunk/var/lib/splunk/modinputs",
		SessionKey:    "123102983109283019283",
	}, b.Metadata)

	require.Len(t, b.Inputs, 2)
	assert.Equal(t, []string{"bar", "foo"}, b.Names())

	p := b.Inputs["foo"]["p"]
	assert.False(t, p.IsList())
	assert.Equal(t, "1", p.String())

	q := b.Inputs["bar"]["q"]
	assert.True(t, q.IsList())
	assert.Equal(t, []string{"x", "y"}, q.Strings())
}

func TestDecodeBundle_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"wrong root", `<items/>`},
		{"missing session key", `<input><server_host/><server_uri/><checkpoint_dir/><configuration/></input>`},
		{"missing configuration", `<input><server_host/><server_uri/><checkpoint_dir/><session_key/></input>`},
		{"stanza without name", `<input><server_host/><server_uri/><checkpoint_dir/><session_key/><configuration><stanza/></configuration></input>`},
		{"param without name", `<input><server_host/><server_uri/><checkpoint_dir/><session_key/><configuration><stanza name="a"><param>1</param></stanza></configuration></input>`},
		{"duplicate stanza", `<input><server_host/><server_uri/><checkpoint_dir/><session_key/><configuration><stanza name="a"/><stanza name="a"/></configuration></input>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := DecodeBundle(mustParse(t, tt.doc))
			assert.ErrorIs(t, err, ErrDecode)
			assert.Nil(t, b)
		})
	}

	_, err := DecodeBundle(nil)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDecodeMetadata_EmptyElementsAccepted(t *testing.T) {
	m, err := DecodeMetadata(mustParse(t, `<input><server_host/><server_uri></server_uri><checkpoint_dir/><session_key/></input>`))
	require.NoError(t, err)
	assert.Equal(t, Metadata{}, m)

	_, err = DecodeMetadata(mustParse(t, `<input><server_host/></input>`))
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestDecodeStanza_ParamListWinsOverParam(t *testing.T) {
	n := mustParse(t, `<stanza name="s">
  <param_list name="k"><value>a</value><value>b</value></param_list>
  <param name="k">scalar</param>
  <param name="d">first</param>
  <param name="d">second</param>
  <param_list name="empty"></param_list>
</stanza>`)

	s, err := DecodeStanza(n)
	require.NoError(t, err)

	assert.True(t, s["k"].IsList())
	assert.Equal(t, []string{"a", "b"}, s.Strings("k"))
	assert.Equal(t, "second", s.String("d"))
	assert.True(t, s["empty"].IsList())
	assert.Empty(t, s.Strings("empty"))
}

func TestStanza_RoundTrip(t *testing.T) {
	orig := Stanza{
		"interval": Scalar("60"),
		"empty":    Scalar(""),
		"hosts":    List("b", "a", "c"),
		"single":   List("only"),
		"escaped":  Scalar(`<&>"`),
	}

	first := EncodeStanza(TagStanza, "kind://x", orig)
	b, err := xmlcodec.Marshal(first)
	require.NoError(t, err)

	decoded, err := DecodeStanza(mustParse(t, string(b)))
	require.NoError(t, err)
	assert.True(t, orig.Equal(decoded), "decode(encode(s)) = %v, want %v", decoded, orig)
	assert.Equal(t, []string{"b", "a", "c"}, decoded.Strings("hosts"))

	again, err := DecodeStanza(EncodeStanza(TagStanza, "kind://x", decoded))
	require.NoError(t, err)
	assert.True(t, decoded.Equal(again))
}

func TestBundle_RoundTrip(t *testing.T) {
	b, err := DecodeBundle(mustParse(t, twoStanzaInput))
	require.NoError(t, err)

	text, err := xmlcodec.Marshal(EncodeBundle(b))
	require.NoError(t, err)

	b2, err := DecodeBundle(mustParse(t, string(text)))
	require.NoError(t, err)
	assert.Equal(t, b.Metadata, b2.Metadata)
	require.Len(t, b2.Inputs, len(b.Inputs))
	for name, s := range b.Inputs {
		assert.True(t, s.Equal(b2.Inputs[name]), name)
	}
}

func TestDecodeValidationRequest(t *testing.T) {
	doc := `<items>
  <server_host>myHost</server_host>
  <server_uri>https://127.0.0.1:8089</server_uri>
  <session_key>123102983109283019283</session_key>
  <checkpoint_dir>/opt/splunk/var/lib/splunk/modinputs</checkpoint_dir>
  <item name="myScheme">
    <param name="param1">value1</param>
    <param_list name="param2">
      <value>value2</value>
      <value>value3</value>
      <value>value4</value>
    </param_list>
  </item>
</items>`

	r, err := DecodeValidationRequest(mustParse(t, doc))
	require.NoError(t, err)
	assert.Equal(t, "myScheme", r.Name)
	assert.Equal(t, "myHost", r.ServerHost)
	assert.Equal(t, "value1", r.Parameters.String("param1"))
	assert.Equal(t, []string{"value2", "value3", "value4"}, r.Parameters.Strings("param2"))

	text, err := xmlcodec.Marshal(EncodeValidationRequest(r))
	require.NoError(t, err)
	r2, err := DecodeValidationRequest(mustParse(t, string(text)))
	require.NoError(t, err)
	assert.Equal(t, r.Metadata, r2.Metadata)
	assert.True(t, r.Parameters.Equal(r2.Parameters))
}

func TestDecodeValidationRequest_ItemCount(t *testing.T) {
	meta := `<server_host/><server_uri/><checkpoint_dir/><session_key/>`

	_, err := DecodeValidationRequest(mustParse(t, `<items>`+meta+`</items>`))
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = DecodeValidationRequest(mustParse(t, `<items>`+meta+`<item name="a"/><item name="b"/></items>`))
	assert.ErrorIs(t, err, ErrDecode)

	_, err = DecodeValidationRequest(mustParse(t, `<input>`+meta+`</input>`))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestStanza_TypedGetters(t *testing.T) {
	s := Stanza{
		"on":    Scalar("Yes"),
		"off":   Scalar("0"),
		"bad":   Scalar("maybe"),
		"count": Scalar(" 42 "),
		"ratio": Scalar("0.5"),
	}

	on, err := s.Bool("on")
	require.NoError(t, err)
	assert.True(t, on)

	off, err := s.Bool("off")
	require.NoError(t, err)
	assert.False(t, off)

	_, err = s.Bool("bad")
	assert.ErrorIs(t, err, ErrDecode)

	_, err = s.Bool("missing")
	assert.ErrorIs(t, err, ErrMissingField)

	n, err := s.Int("count")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	_, err = s.Int("ratio")
	assert.ErrorIs(t, err, ErrDecode)

	f, err := s.Float("ratio")
	require.NoError(t, err)
	assert.Equal(t, 0.5, f)

	assert.True(t, s.Has("on"))
	assert.Nil(t, s.Strings("missing"))
	assert.Equal(t, "", s.String("missing"))
}

func TestValue(t *testing.T) {
	assert.Equal(t, []string{"a"}, Scalar("a").Strings())
	assert.Equal(t, "x", List("x", "y").String())
	assert.Equal(t, "", List().String())

	src := []string{"a", "b"}
	v := List(src...)
	src[0] = "changed"
	assert.Equal(t, []string{"a", "b"}, v.Strings())

	assert.False(t, Scalar("a").Equal(List("a")))
	assert.False(t, List("a").Equal(List("a", "b")))
	assert.True(t, List("a", "b").Equal(List("a", "b")))
}
