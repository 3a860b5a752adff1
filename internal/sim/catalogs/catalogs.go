package catalogs

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed materials.schema.json
var materialsSchema string

var ErrUnknownItem = errors.New("unknown item")

// Item kinds. Exactly one FUEL, CONTAINER and PRODUCT item must exist.
const (
	KindFuel      = "FUEL"
	KindMaterial  = "MATERIAL"
	KindContainer = "CONTAINER"
	KindProduct   = "PRODUCT"
	KindDecor     = "DECOR"
	KindBlock     = "BLOCK"
)

const DefaultMaxStack = 64

type Catalog struct {
	Items   map[string]ItemDef
	Palette []string
	Index   map[string]uint16
	Anchor  AnchorDef
	Digest  string

	Fuel      string
	Container string
	Product   string
	Materials []string // sorted
}

type ItemDef struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	MaxStack int    `json:"max_stack,omitempty"`
}

// AnchorDef is the block shape a station must sit on: Block with one of HeatSources directly below.
type AnchorDef struct {
	Block       string   `json:"block"`
	HeatSources []string `json:"heat_sources"`
}

type materialsFile struct {
	Items  []ItemDef `json:"items"`
	Anchor AnchorDef `json:"anchor"`
}

func Load(configDir string) (*Catalog, error) {
	raw, err := os.ReadFile(filepath.Join(configDir, "materials.json"))
	if err != nil {
		return nil, err
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("materials.json: %w", err)
	}
	return c, nil
}

func Parse(raw []byte) (*Catalog, error) {
	if err := validate(raw); err != nil {
		return nil, err
	}
	var f materialsFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}

	c := &Catalog{
		Items:  make(map[string]ItemDef, len(f.Items)),
		Anchor: f.Anchor,
		Digest: sha256Hex(raw),
	}
	for _, d := range f.Items {
		if _, dup := c.Items[d.ID]; dup {
			return nil, fmt.Errorf("duplicate item id %q", d.ID)
		}
		if d.MaxStack <= 0 {
			d.MaxStack = DefaultMaxStack
		}
		c.Items[d.ID] = d
	}

	var err error
	single := func(kind string) (string, error) {
		var found []string
		for id, d := range c.Items {
			if d.Kind == kind {
				found = append(found, id)
			}
		}
		if len(found) != 1 {
			sort.Strings(found)
			return "", fmt.Errorf("want exactly one %s item, got %v", kind, found)
		}
		return found[0], nil
	}
	if c.Fuel, err = single(KindFuel); err != nil {
		return nil, err
	}
	if c.Container, err = single(KindContainer); err != nil {
		return nil, err
	}
	if c.Product, err = single(KindProduct); err != nil {
		return nil, err
	}

	for id, d := range c.Items {
		if d.Kind == KindMaterial {
			c.Materials = append(c.Materials, id)
		}
	}
	sort.Strings(c.Materials)
	if len(c.Materials) == 0 {
		return nil, fmt.Errorf("no MATERIAL items")
	}

	for _, b := range append([]string{c.Anchor.Block}, c.Anchor.HeatSources...) {
		if d, ok := c.Items[b]; !ok || d.Kind != KindBlock {
			return nil, fmt.Errorf("anchor block %q is not a BLOCK item", b)
		}
	}

	c.Palette = make([]string, 0, len(c.Items))
	for id := range c.Items {
		c.Palette = append(c.Palette, id)
	}
	sort.Strings(c.Palette)
	c.Index = make(map[string]uint16, len(c.Palette))
	for i, id := range c.Palette {
		c.Index[id] = uint16(i)
	}
	return c, nil
}

func validate(raw []byte) error {
	schema, err := jsonschema.CompileString("materials.schema.json", materialsSchema)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return schema.Validate(doc)
}

func (c *Catalog) Lookup(item string) (ItemDef, error) {
	d, ok := c.Items[item]
	if !ok {
		return ItemDef{}, fmt.Errorf("%w: %q", ErrUnknownItem, item)
	}
	return d, nil
}

func (c *Catalog) IsMaterial(item string) bool {
	d, ok := c.Items[item]
	return ok && d.Kind == KindMaterial
}

func (c *Catalog) MaxStack(item string) int {
	if d, ok := c.Items[item]; ok {
		return d.MaxStack
	}
	return DefaultMaxStack
}

func (c *Catalog) IsHeatSource(block string) bool {
	for _, h := range c.Anchor.HeatSources {
		if h == block {
			return true
		}
	}
	return false
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Compact re-encodes the catalog in canonical form (sorted ids), used for digests sent to clients.
func (c *Catalog) Compact() []byte {
	var buf bytes.Buffer
	items := make([]ItemDef, 0, len(c.Palette))
	for _, id := range c.Palette {
		items = append(items, c.Items[id])
	}
	_ = json.NewEncoder(&buf).Encode(materialsFile{Items: items, Anchor: c.Anchor})
	return buf.Bytes()
}
