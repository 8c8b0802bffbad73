package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "hello", SanitizeInput("  hello\x00 "))
	assert.Equal(t, "", SanitizeInput("<script>alert(1)</script>"))
	assert.Equal(t, "a &amp; b", SanitizeInput("a & b"))
}

func TestSanitizeTextarea(t *testing.T) {
	assert.Equal(t, "line1\nline2", SanitizeTextarea("line1\r\nline2"))
}

func TestSanitizeHTML(t *testing.T) {
	in := `<a href="javascript:alert(1)" onclick="steal()">Join</a><script>x()</script><img src="https://cdn.example.com/b.png">`
	out := SanitizeHTML(in)
	assert.Contains(t, out, "Join")
	assert.Contains(t, out, `src="https://cdn.example.com/b.png"`)
	assert.NotContains(t, out, "javascript")
	assert.NotContains(t, out, "onclick")
	assert.NotContains(t, out, "<script")

	link := SanitizeHTML(`<a href="https://shop.example.com/?ref=AFF-ABC123">Shop</a>`)
	assert.Contains(t, link, `href="https://shop.example.com/?ref=AFF-ABC123"`)
	assert.Contains(t, link, ">Shop</a>")
}

func TestSanitizeHTML_Evasions(t *testing.T) {
	cases := map[string][]string{
		`<scr<script></script>ipt>alert(1)</script>`:   {"<script"},
		`<img/onerror=alert(1) src=x>`:                 {"onerror"},
		`<a href="jav&#x61;script:alert(1)">x</a>`:     {"javascript", "jav&#x61;script", "alert"},
		`<svg onload=alert(1)>`:                        {"onload", "<svg"},
		`<iframe src="https://evil.example"></iframe>`: {"<iframe"},
	}
	for in, banned := range cases {
		out := SanitizeHTML(in)
		for _, b := range banned {
			assert.NotContains(t, out, b, in)
		}
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "hello-world", Slugify("  Hello  World! "))
	assert.Equal(t, "opening_hours", Slugify("Opening_Hours"))
	assert.Equal(t, "", Slugify("!!!"))
}

func TestSanitizeURL(t *testing.T) {
	_, err := SanitizeURL("ftp://example.com")
	assert.Error(t, err)
	_, err = SanitizeURL("/relative")
	assert.Error(t, err)
	u, err := SanitizeURL(" http://example.com/a?b=c ")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/a?b=c", u)
}

func TestGenerateAffiliateCode(t *testing.T) {
	code, err := GenerateAffiliateCode()
	require.NoError(t, err)
	assert.Regexp(t, `^AFF-[A-Z2-7]{6}$`, code)
}

func TestQRCodeDataURI(t *testing.T) {
	uri, err := QRCodeDataURI("https://example.com/r/AFF-ABCDEF", 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
}

func TestValidateImageFile(t *testing.T) {
	assert.NoError(t, ValidateImageFile("icon.PNG", 1024))
	assert.Error(t, ValidateImageFile("icon.svg", 1024))
	assert.Error(t, ValidateImageFile("icon.png", maxFileSize+1))
}

func TestGenerateAppIcons(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	dir := t.TempDir()
	urls, err := GenerateAppIcons(dir, "abc-123", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "/uploads/apps/abc-123/icon-192.png", urls[192])
	assert.Equal(t, "/uploads/apps/abc-123/icon-512.png", urls[512])

	f, err := os.Open(filepath.Join(dir, "apps", "abc-123", "icon-512.png"))
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.Width)
	assert.Equal(t, 512, cfg.Height)

	_, err = GenerateAppIcons(dir, "abc-123", []byte("not an image"))
	assert.Error(t, err)
}
