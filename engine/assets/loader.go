package assets

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pelletier/go-toml/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/spaghettifunk/framegraph/engine/core"
)

// Variables are exposed to descriptions that support expressions.
type Variables struct {
	ScreenWidth  uint32
	ScreenHeight uint32
}

type Loader interface {
	Load(filename string, data []byte, vars Variables) (*Description, error)
}

type TOMLLoader struct{}

func (TOMLLoader) Load(filename string, data []byte, _ Variables) (*Description, error) {
	var d Description
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&d); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, errors.Wrapf(err, "failed to decode %s:%d:%d", filename, row, col)
		}
		return nil, errors.Wrapf(err, "failed to decode %s", filename)
	}
	return &d, nil
}

type HCLLoader struct{}

func (HCLLoader) evalContext(vars Variables) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"screen": cty.ObjectVal(map[string]cty.Value{
				"width":  cty.NumberUIntVal(uint64(vars.ScreenWidth)),
				"height": cty.NumberUIntVal(uint64(vars.ScreenHeight)),
			}),
		},
	}
}

func (l HCLLoader) Load(filename string, data []byte, vars Variables) (*Description, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "failed to parse %s", filename)
	}

	var d Description
	diags = gohcl.DecodeBody(file.Body, l.evalContext(vars), &d)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "failed to decode %s", filename)
	}
	return &d, nil
}

var loaders = map[string]Loader{
	".toml": TOMLLoader{},
	".hcl":  HCLLoader{},
}

// LoaderFor picks the loader registered for the extension of filename.
func LoaderFor(filename string) (Loader, error) {
	loader, ok := loaders[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return nil, errors.Wrapf(core.ErrUnknownDescriptionFormat, "%s", filename)
	}
	return loader, nil
}

func LoadDescription(path string, vars Variables) (*Description, error) {
	loader, err := LoaderFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read description")
	}
	d, err := loader.Load(path, data, vars)
	if err != nil {
		return nil, err
	}
	if d.Name == "" {
		d.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	core.LogDebug("loaded description '%s': %d textures, %d buffers, %d passes",
		d.Name, len(d.Textures), len(d.Buffers), len(d.Passes))
	return d, nil
}
