package storage

import "testing"

func TestURLForWithPublicURL(t *testing.T) {
	store := &PhotoStore{bucket: "photos", publicURL: "https://cdn.spoonjoy.test"}
	got := store.URLFor("photos/7/abc.jpg")
	want := "https://cdn.spoonjoy.test/photos/7/abc.jpg"
	if got != want {
		t.Fatalf("URLFor = %q, want %q", got, want)
	}
}

func TestURLForWithoutPublicURL(t *testing.T) {
	store := &PhotoStore{bucket: "photos"}
	if got := store.URLFor("photos/7/abc.jpg"); got != "/photos/photos/7/abc.jpg" {
		t.Fatalf("URLFor = %q", got)
	}
}

func TestObjectNameForRoundTrip(t *testing.T) {
	store := &PhotoStore{bucket: "photos", publicURL: "https://cdn.spoonjoy.test"}
	url := store.URLFor("photos/7/abc.jpg")
	name, ok := store.objectNameFor(url)
	if !ok {
		t.Fatalf("objectNameFor(%q) not recognized", url)
	}
	if name != "photos/7/abc.jpg" {
		t.Fatalf("objectNameFor = %q", name)
	}
}

func TestObjectNameForForeignURL(t *testing.T) {
	store := &PhotoStore{bucket: "photos", publicURL: "https://cdn.spoonjoy.test"}
	if _, ok := store.objectNameFor("https://elsewhere.test/x.jpg"); ok {
		t.Fatal("foreign URL should not resolve to an object")
	}
}

func TestExtensionFor(t *testing.T) {
	cases := map[string]string{
		"image/png":  ".png",
		"image/jpeg": ".jpg",
		"image/webp": ".webp",
		"":           ".jpg",
	}
	for contentType, want := range cases {
		if got := extensionFor(contentType); got != want {
			t.Fatalf("extensionFor(%q) = %q, want %q", contentType, got, want)
		}
	}
}
