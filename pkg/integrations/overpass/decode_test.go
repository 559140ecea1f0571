package overpass

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"

	"github.com/matzehuels/cityposter/pkg/cache"
)

const fixture = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="Overpass API">
  <node id="1" lat="0" lon="0"/>
  <node id="2" lat="1" lon="0"/>
  <node id="3" lat="1" lon="1"/>
  <node id="4" lat="0" lon="1"/>
  <node id="5" lat="0.2" lon="0.2"/>
  <node id="6" lat="0.4" lon="0.2"/>
  <node id="7" lat="0.4" lon="0.4"/>
  <node id="8" lat="0.2" lon="0.4"/>
  <node id="11" lat="5" lon="5"/>
  <node id="12" lat="6" lon="5"/>
  <node id="13" lat="6" lon="6"/>
  <way id="10">
    <nd ref="11"/><nd ref="12"/><nd ref="13"/><nd ref="11"/>
    <tag k="natural" v="water"/>
  </way>
  <way id="20"><nd ref="1"/><nd ref="2"/><nd ref="3"/></way>
  <way id="21"><nd ref="1"/><nd ref="4"/><nd ref="3"/></way>
  <way id="22"><nd ref="5"/><nd ref="6"/><nd ref="7"/><nd ref="8"/><nd ref="5"/></way>
  <way id="40"><nd ref="1"/><nd ref="3"/><tag k="highway" v="primary"/></way>
  <way id="41"><nd ref="2"/><nd ref="4"/><tag k="highway" v="motorway;trunk"/></way>
  <way id="42"><nd ref="1"/><nd ref="999"/><tag k="highway" v="residential"/></way>
  <relation id="30">
    <member type="way" ref="20" role="outer"/>
    <member type="way" ref="21" role="outer"/>
    <member type="way" ref="22" role="inner"/>
    <member type="node" ref="1" role=""/>
    <tag k="type" v="multipolygon"/>
    <tag k="leisure" v="park"/>
  </relation>
</osm>`

func mustDecode(t *testing.T, data string) *document {
	t.Helper()
	d, err := decode([]byte(data))
	if err != nil {
		t.Fatalf("decode() error: %v", err)
	}
	return d
}

func TestDecodeRoads(t *testing.T) {
	d := mustDecode(t, fixture)
	roads := d.Roads()

	if len(roads) != 2 {
		t.Fatalf("Roads() returned %d roads, want 2", len(roads))
	}
	if diff := cmp.Diff([]string{"primary"}, roads[0].Highway); diff != "" {
		t.Errorf("road 40 highway mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"motorway", "trunk"}, roads[1].Highway); diff != "" {
		t.Errorf("road 41 highway mismatch (-want +got):\n%s", diff)
	}
	want := orb.LineString{{0, 0}, {1, 1}}
	if !roads[0].Line.Equal(want) {
		t.Errorf("road 40 line = %v, want %v", roads[0].Line, want)
	}
}

func TestDecodeWater(t *testing.T) {
	d := mustDecode(t, fixture)
	mp := d.Polygons(WaterTags)

	if len(mp) != 1 {
		t.Fatalf("Polygons(water) returned %d polygons, want 1", len(mp))
	}
	if len(mp[0]) != 1 || len(mp[0][0]) != 4 {
		t.Errorf("water polygon = %v, want one closed triangle", mp[0])
	}
}

func TestDecodeMultipolygonRelation(t *testing.T) {
	d := mustDecode(t, fixture)
	mp := d.Polygons(ParkTags)

	if len(mp) != 1 {
		t.Fatalf("Polygons(parks) returned %d polygons, want 1", len(mp))
	}
	poly := mp[0]
	if len(poly) != 2 {
		t.Fatalf("park polygon has %d rings, want outer + inner", len(poly))
	}
	outer := poly[0]
	if len(outer) != 5 || !outer.Closed() {
		t.Errorf("outer ring = %v, want 5 points closed", outer)
	}
	if !poly[1].Closed() {
		t.Errorf("inner ring not closed: %v", poly[1])
	}
}

func TestDecodeRemarkError(t *testing.T) {
	data := `<osm><remark>runtime error: Query timed out in "query" at line 1 after 181 seconds.</remark></osm>`
	_, err := decode([]byte(data))
	if err == nil {
		t.Fatal("decode() should fail on a runtime error remark")
	}
	if !cache.IsRetryable(err) {
		t.Error("runtime error remark should be retryable")
	}
}

func TestDecodeInvalid(t *testing.T) {
	for _, data := range []string{"", "<html></html>", "not xml <"} {
		if _, err := decode([]byte(data)); err == nil {
			t.Errorf("decode(%q) should fail", data)
		}
	}
}

func TestJoinRings(t *testing.T) {
	tests := []struct {
		name  string
		lines []orb.LineString
		want  int
	}{
		{
			name:  "already closed",
			lines: []orb.LineString{{{0, 0}, {0, 1}, {1, 1}, {0, 0}}},
			want:  1,
		},
		{
			name:  "two halves",
			lines: []orb.LineString{{{0, 0}, {0, 1}, {1, 1}}, {{1, 1}, {1, 0}, {0, 0}}},
			want:  1,
		},
		{
			name:  "reversed half",
			lines: []orb.LineString{{{0, 0}, {0, 1}, {1, 1}}, {{0, 0}, {1, 0}, {1, 1}}},
			want:  1,
		},
		{
			name:  "unclosable",
			lines: []orb.LineString{{{0, 0}, {0, 1}}, {{5, 5}, {6, 6}}},
			want:  0,
		},
		{
			name:  "degenerate",
			lines: []orb.LineString{{{0, 0}, {1, 1}, {0, 0}}},
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rings := joinRings(tt.lines)
			if len(rings) != tt.want {
				t.Fatalf("joinRings() returned %d rings, want %d", len(rings), tt.want)
			}
			for _, r := range rings {
				if !r.Closed() {
					t.Errorf("ring %v not closed", r)
				}
			}
		})
	}
}
