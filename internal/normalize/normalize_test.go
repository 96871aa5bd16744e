package normalize

import "testing"

func TestName(t *testing.T) {
	t.Parallel()

	if got := Name("  Zero   Two "); got != "zero two" {
		t.Fatalf("unexpected normalized name: %q", got)
	}
	if Name("ZERO TWO") != Name("zero\ttwo") {
		t.Fatal("case and whitespace variants should normalize identically")
	}
	if got := Name("K-On!"); got != "k-on!" {
		t.Fatalf("name punctuation should be preserved, got %q", got)
	}
	if got := Name(""); got != "" {
		t.Fatalf("empty input should normalize to empty string, got %q", got)
	}
}

func TestSeriesLoose(t *testing.T) {
	t.Parallel()

	if got, want := SeriesLoose("Kono Subarashii Sekai ni Shukufuku wo!"), SeriesLoose("Kono Subarashii Sekai ni Shukufuku"); got != want {
		t.Fatalf("trailing particle should be stripped: %q != %q", got, want)
	}
	if got := SeriesLoose("Re:Zero"); got != "re zero" {
		t.Fatalf("colon should become a separator, got %q", got)
	}
	if got := SeriesLoose("Fate/Grand Order"); got != "fate grand order" {
		t.Fatalf("slash should become a separator, got %q", got)
	}
	if got := SeriesLoose("Toaru — Railgun"); got != "toaru - railgun" {
		t.Fatalf("em dash should normalize to hyphen, got %q", got)
	}
	if got := SeriesLoose("Shingeki no Kyojin!!"); got != "shingeki no kyojin" {
		t.Fatalf("trailing marks should be stripped, got %q", got)
	}
	if got := SeriesLoose("ソードアート・オンラインを"); got != SeriesLoose("ソードアート・オンライン") {
		t.Fatalf("native-script particle should be stripped, got %q", got)
	}
	if got := SeriesLoose(""); got != "unknown" {
		t.Fatalf("empty series should normalize to %q, got %q", "unknown", got)
	}
}
