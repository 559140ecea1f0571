package overpass

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/matzehuels/cityposter/pkg/cache"
	"github.com/matzehuels/cityposter/pkg/geo"
	"github.com/matzehuels/cityposter/pkg/integrations"
)

type way struct {
	id   int64
	refs []int64
	tags map[string]string
}

type member struct {
	kind string
	ref  int64
	role string
}

type relation struct {
	id      int64
	members []member
	tags    map[string]string
}

// document is a decoded Overpass XML response.
type document struct {
	nodes     map[int64]orb.Point
	ways      []*way
	wayByID   map[int64]*way
	relations []*relation
}

// decode parses an Overpass XML response. A runtime error remark (usually a
// server-side timeout) is reported as a retryable network error.
func decode(data []byte) (*document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: invalid overpass XML: %v", integrations.ErrNetwork, err)
	}
	root := doc.SelectElement("osm")
	if root == nil {
		return nil, fmt.Errorf("%w: overpass response has no osm element", integrations.ErrNetwork)
	}
	if remark := root.SelectElement("remark"); remark != nil {
		if text := strings.TrimSpace(remark.Text()); strings.Contains(text, "error") {
			return nil, cache.Retryable(fmt.Errorf("%w: overpass: %s", integrations.ErrNetwork, text))
		}
	}

	d := &document{
		nodes:   make(map[int64]orb.Point),
		wayByID: make(map[int64]*way),
	}
	for _, el := range root.ChildElements() {
		switch el.Tag {
		case "node":
			id, ok := attrInt(el, "id")
			if !ok {
				continue
			}
			lat, err1 := strconv.ParseFloat(el.SelectAttrValue("lat", ""), 64)
			lon, err2 := strconv.ParseFloat(el.SelectAttrValue("lon", ""), 64)
			if err1 != nil || err2 != nil {
				continue
			}
			d.nodes[id] = orb.Point{lon, lat}
		case "way":
			id, ok := attrInt(el, "id")
			if !ok {
				continue
			}
			w := &way{id: id, tags: tags(el)}
			for _, nd := range el.SelectElements("nd") {
				if ref, ok := attrInt(nd, "ref"); ok {
					w.refs = append(w.refs, ref)
				}
			}
			d.ways = append(d.ways, w)
			d.wayByID[id] = w
		case "relation":
			id, ok := attrInt(el, "id")
			if !ok {
				continue
			}
			r := &relation{id: id, tags: tags(el)}
			for _, m := range el.SelectElements("member") {
				ref, ok := attrInt(m, "ref")
				if !ok {
					continue
				}
				r.members = append(r.members, member{
					kind: m.SelectAttrValue("type", ""),
					ref:  ref,
					role: m.SelectAttrValue("role", ""),
				})
			}
			d.relations = append(d.relations, r)
		}
	}
	return d, nil
}

func attrInt(el *etree.Element, key string) (int64, bool) {
	v, err := strconv.ParseInt(el.SelectAttrValue(key, ""), 10, 64)
	return v, err == nil
}

func tags(el *etree.Element) map[string]string {
	var out map[string]string
	for _, t := range el.SelectElements("tag") {
		if out == nil {
			out = make(map[string]string)
		}
		out[t.SelectAttrValue("k", "")] = t.SelectAttrValue("v", "")
	}
	return out
}

// line resolves a way's node references, dropping unknown nodes.
func (d *document) line(w *way) orb.LineString {
	ls := make(orb.LineString, 0, len(w.refs))
	for _, ref := range w.refs {
		if p, ok := d.nodes[ref]; ok {
			ls = append(ls, p)
		}
	}
	return ls
}

// Roads returns every way carrying a highway tag. Multi-valued tags are
// split on ';'.
func (d *document) Roads() []geo.Road {
	var roads []geo.Road
	for _, w := range d.ways {
		hw, ok := w.tags["highway"]
		if !ok {
			continue
		}
		ls := d.line(w)
		if len(ls) < 2 {
			continue
		}
		roads = append(roads, geo.Road{
			ID:      w.id,
			Highway: strings.Split(hw, ";"),
			Line:    ls,
		})
	}
	return roads
}

func matches(t map[string]string, filters []Tag) bool {
	for _, f := range filters {
		if t[f.Key] == f.Value {
			return true
		}
	}
	return false
}

// Polygons returns closed ways and multipolygon relations matching any of
// filters.
func (d *document) Polygons(filters []Tag) orb.MultiPolygon {
	var mp orb.MultiPolygon
	for _, w := range d.ways {
		if !matches(w.tags, filters) {
			continue
		}
		ls := d.line(w)
		if len(ls) >= 4 && ls[0] == ls[len(ls)-1] {
			mp = append(mp, orb.Polygon{orb.Ring(ls)})
		}
	}
	for _, r := range d.relations {
		if !matches(r.tags, filters) {
			continue
		}
		if typ := r.tags["type"]; typ != "multipolygon" && typ != "" {
			continue
		}
		mp = append(mp, d.relationPolygons(r)...)
	}
	return mp
}

func (d *document) relationPolygons(r *relation) []orb.Polygon {
	var outer, inner []orb.LineString
	for _, m := range r.members {
		if m.kind != "way" {
			continue
		}
		w, ok := d.wayByID[m.ref]
		if !ok {
			continue
		}
		ls := d.line(w)
		if len(ls) < 2 {
			continue
		}
		if m.role == "inner" {
			inner = append(inner, ls)
		} else {
			outer = append(outer, ls)
		}
	}

	polys := make([]orb.Polygon, 0, len(outer))
	for _, ring := range joinRings(outer) {
		polys = append(polys, orb.Polygon{ring})
	}
	for _, hole := range joinRings(inner) {
		for i := range polys {
			if planar.RingContains(polys[i][0], hole[0]) {
				polys[i] = append(polys[i], hole)
				break
			}
		}
	}
	return polys
}

// joinRings stitches open line segments end to end into closed rings.
// Segments that cannot be closed are dropped.
func joinRings(lines []orb.LineString) []orb.Ring {
	remaining := make([]orb.LineString, len(lines))
	copy(remaining, lines)

	var rings []orb.Ring
	for len(remaining) > 0 {
		cur := append(orb.LineString(nil), remaining[0]...)
		remaining = remaining[1:]

		for cur[0] != cur[len(cur)-1] {
			joined := false
			for i, next := range remaining {
				end := cur[len(cur)-1]
				switch {
				case next[0] == end:
					cur = append(cur, next[1:]...)
				case next[len(next)-1] == end:
					cur = append(cur, reversed(next)[1:]...)
				default:
					continue
				}
				remaining = append(remaining[:i], remaining[i+1:]...)
				joined = true
				break
			}
			if !joined {
				break
			}
		}

		if len(cur) >= 4 && cur[0] == cur[len(cur)-1] {
			rings = append(rings, orb.Ring(cur))
		}
	}
	return rings
}

func reversed(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[len(ls)-1-i] = p
	}
	return out
}
