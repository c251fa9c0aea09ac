package templates

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/bregovic/docmeta/internal/common"
	"github.com/bregovic/docmeta/internal/entity"
)

// templateFileSchema constrains *.json template files loaded from disk.
// Fractional zone bounds only; absolute pixels do not survive DPI changes.
var templateFileSchema = map[string]any{
	"type":     "object",
	"required": []any{"name", "zones"},
	"properties": map[string]any{
		"name":        map[string]any{"type": "string", "minLength": 1},
		"anchor_text": map[string]any{"type": "string"},
		"doc_type_id": map[string]any{"type": "string"},
		"zones": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"attr_code", "x", "y", "width", "height"},
				"properties": map[string]any{
					"attr_code": map[string]any{"type": "string", "minLength": 1},
					"x":         map[string]any{"type": "number", "minimum": 0, "maximum": 1},
					"y":         map[string]any{"type": "number", "minimum": 0, "maximum": 1},
					"width":     map[string]any{"type": "number", "exclusiveMinimum": 0, "maximum": 1},
					"height":    map[string]any{"type": "number", "exclusiveMinimum": 0, "maximum": 1},
					"data_type": map[string]any{"type": "string", "enum": []any{"text", "number", "date"}},
					"pattern":   map[string]any{"type": "string"},
				},
			},
		},
	},
}

type templateFile struct {
	Name       string     `json:"name"`
	AnchorText string     `json:"anchor_text"`
	DocTypeID  string     `json:"doc_type_id"`
	Zones      []zoneFile `json:"zones"`
}

type zoneFile struct {
	AttrCode string  `json:"attr_code"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	DataType string  `json:"data_type"`
	Pattern  string  `json:"pattern"`
}

// LoadDir reads every *.json file in dir as a template definition. Files are
// loaded in name order so precedence is deterministic. A missing or empty
// dir yields no templates and no error; a malformed file is an error.
func LoadDir(dir string, tenantID uuid.UUID, logger *slog.Logger) ([]entity.Template, error) {
	if dir == "" {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, common.NewAppError("TEMPLATE_DIR_READ", "failed to read template directory", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var tpls []entity.Template
	for _, name := range names {
		path := filepath.Join(dir, name)
		tpl, err := loadFile(path, tenantID)
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded template file", "path", path, "template", tpl.Name, "zones", len(tpl.Zones))
		tpls = append(tpls, *tpl)
	}
	return tpls, nil
}

func loadFile(path string, tenantID uuid.UUID) (*entity.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewAppError("TEMPLATE_FILE_READ", "failed to read template file "+path, err)
	}
	if err := validateAgainstSchema(templateFileSchema, data); err != nil {
		return nil, common.NewAppError("TEMPLATE_FILE_INVALID", "template file "+path+" does not match schema", err)
	}

	var tf templateFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, common.NewAppError("TEMPLATE_FILE_INVALID", "failed to decode template file "+path, err)
	}

	tpl := &entity.Template{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Name:       tf.Name,
		AnchorText: tf.AnchorText,
	}
	if tf.DocTypeID != "" {
		id, err := uuid.Parse(tf.DocTypeID)
		if err != nil {
			return nil, common.NewAppError("TEMPLATE_FILE_INVALID", "bad doc_type_id in "+path, err)
		}
		tpl.DocTypeID = &id
	}
	for _, z := range tf.Zones {
		tpl.Zones = append(tpl.Zones, entity.Zone{
			ID:       uuid.New(),
			AttrCode: z.AttrCode,
			X:        z.X,
			Y:        z.Y,
			Width:    z.Width,
			Height:   z.Height,
			DataType: entity.DataType(z.DataType),
			Pattern:  z.Pattern,
		})
	}
	return tpl, nil
}

func validateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("template.json", bytes.NewReader(b)); err != nil {
		return err
	}
	schema, err := compiler.Compile("template.json")
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return schema.Validate(v)
}
