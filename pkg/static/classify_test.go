package static

import "testing"

func TestIsAsset(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"/_assets/app.js", true},
		{"/_assets/chunk.abc123.css", true},
		{"/_assets", true},
		{"/_assetsish/page", false},
		{"/favicon.png", true},
		{"/fonts/inter.woff2", true},
		{"/sitemap.xml", true},
		{"/app.js.map", true},
		{"/blog", false},
		{"/blog/", false},
		{"/about.html", false},
		{"/", false},
	}
	for _, c := range cases {
		if got := IsAsset(c.path, "/_assets"); got != c.want {
			t.Fatalf("IsAsset(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestIsAssetWithoutPrefix(t *testing.T) {
	if IsAsset("/anything/page", "") {
		t.Fatalf("no prefix, no extension: not an asset")
	}
	if !IsAsset("/anything/style.css", "") {
		t.Fatalf("extension alone must classify")
	}
}
