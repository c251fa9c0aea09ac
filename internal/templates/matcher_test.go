package templates

import (
	"context"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bregovic/docmeta/constants"
	"github.com/bregovic/docmeta/internal/entity"
)

// fakeRecognizer returns one scripted text for every crop.
type fakeRecognizer struct {
	text  string
	calls int
}

func (r *fakeRecognizer) RecognizeImage(context.Context, string) (string, error) {
	r.calls++
	return r.text, nil
}

// unusedRenderer fails the test if the matcher rasterizes a non-PDF input.
type unusedRenderer struct{ t *testing.T }

func (r *unusedRenderer) RenderPage(context.Context, string, int) (string, func(), error) {
	r.t.Fatal("RenderPage must not be called for image documents")
	return "", nil, nil
}

func testPageImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.png")
	img := imaging.New(200, 100, color.White)
	require.NoError(t, imaging.Save(img, path))
	return path
}

func imageDoc() *entity.Document {
	return &entity.Document{
		ID:        uuid.New(),
		TenantID:  uuid.New(),
		MediaType: "image/png",
	}
}

func TestPixelRect(t *testing.T) {
	zone := entity.Zone{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.1}
	rect := pixelRect(zone, 1000, 2000)

	assert.Equal(t, entity.Rect{X: 100, Y: 400, Width: 300, Height: 200}, rect)
}

func TestPixelRectClampsToImage(t *testing.T) {
	zone := entity.Zone{X: 0.9, Y: 0.9, Width: 0.5, Height: 0.5}
	rect := pixelRect(zone, 100, 100)

	assert.Equal(t, entity.Rect{X: 90, Y: 90, Width: 10, Height: 10}, rect)
}

func TestPixelRectMinimumSize(t *testing.T) {
	zone := entity.Zone{X: 0.5, Y: 0.5, Width: 0.0001, Height: 0.0001}
	rect := pixelRect(zone, 100, 100)

	assert.Equal(t, 1, rect.Width)
	assert.Equal(t, 1, rect.Height)
}

func TestSelectTemplateAnchorMatching(t *testing.T) {
	doc := imageDoc()
	tpls := []entity.Template{
		{Name: "wrong", AnchorText: "Jiný dodavatel"},
		{Name: "right", AnchorText: "acme   S.R.O."},
		{Name: "wildcard", AnchorText: ""},
	}

	// anchor comparison folds case and whitespace runs
	got := selectTemplate(doc, "Faktura\nACME s.r.o.\nIČO: 12345678", tpls)

	require.NotNil(t, got)
	assert.Equal(t, "right", got.Name)
}

func TestSelectTemplateDocTypeFilter(t *testing.T) {
	docType := uuid.New()
	otherType := uuid.New()
	doc := imageDoc()
	doc.DocTypeID = &docType

	tpls := []entity.Template{
		{Name: "other-type", DocTypeID: &otherType, AnchorText: ""},
		{Name: "matching-type", DocTypeID: &docType, AnchorText: ""},
	}

	got := selectTemplate(doc, "anything", tpls)

	require.NotNil(t, got)
	assert.Equal(t, "matching-type", got.Name)
}

func TestSelectTemplateAbsentAnchorIsNoMatch(t *testing.T) {
	doc := imageDoc()
	tpls := []entity.Template{
		{Name: "anchored", AnchorText: "Nenajdeš mě"},
	}

	assert.Nil(t, selectTemplate(doc, "Faktura ACME", tpls))
}

func TestMatchAndExtractZoneValue(t *testing.T) {
	pagePath := testPageImage(t)
	rec := &fakeRecognizer{text: "1 234,56"}
	m := NewMatcher(&unusedRenderer{t: t}, rec, nil)

	tpls := []entity.Template{{
		Name:       "acme",
		AnchorText: "",
		Zones: []entity.Zone{{
			AttrCode: "TOTAL_AMOUNT",
			X:        0.5, Y: 0.5, Width: 0.4, Height: 0.2,
			DataType: entity.DataTypeNumber,
		}},
	}}
	attrID := uuid.New()
	attrs := []entity.Attribute{{
		ID: attrID, Name: "Částka celkem", Code: "TOTAL_AMOUNT", DataType: entity.DataTypeNumber,
	}}

	results, err := m.MatchAndExtract(context.Background(), imageDoc(), pagePath, "Faktura", tpls, attrs)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1234.56, results[0].Value)
	assert.Equal(t, attrID, results[0].AttributeID)
	assert.Equal(t, "Částka celkem", results[0].Name)
	assert.Equal(t, constants.ConfidenceHigh, results[0].Confidence)
	assert.Equal(t, constants.StrategyTemplateZone, results[0].Strategy)
	require.NotNil(t, results[0].Source)
	assert.Equal(t, entity.Rect{X: 100, Y: 50, Width: 80, Height: 20}, *results[0].Source)
	assert.Equal(t, 1, rec.calls)
}

func TestMatchAndExtractPatternOverride(t *testing.T) {
	pagePath := testPageImage(t)
	rec := &fakeRecognizer{text: "Faktura č. 2024001234 ze dne 15.3.2024"}
	m := NewMatcher(&unusedRenderer{t: t}, rec, nil)

	tpls := []entity.Template{{
		Name: "acme",
		Zones: []entity.Zone{{
			AttrCode: "INVOICE_NUMBER",
			X:        0, Y: 0, Width: 1, Height: 0.2,
			DataType: entity.DataTypeText,
			Pattern:  `č\.\s*(\d+)`,
		}},
	}}

	results, err := m.MatchAndExtract(context.Background(), imageDoc(), pagePath, "", tpls, nil)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "2024001234", results[0].Value)
	// unknown codes keep the zone code as display name
	assert.Equal(t, "INVOICE_NUMBER", results[0].Name)
}

func TestMatchAndExtractEmptyZoneOmitted(t *testing.T) {
	pagePath := testPageImage(t)
	rec := &fakeRecognizer{text: "   "}
	m := NewMatcher(&unusedRenderer{t: t}, rec, nil)

	tpls := []entity.Template{{
		Name: "acme",
		Zones: []entity.Zone{{
			AttrCode: "TOTAL_AMOUNT",
			X:        0, Y: 0, Width: 0.5, Height: 0.5,
			DataType: entity.DataTypeNumber,
		}},
	}}

	results, err := m.MatchAndExtract(context.Background(), imageDoc(), pagePath, "", tpls, nil)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMatchAndExtractNoTemplateMatch(t *testing.T) {
	rec := &fakeRecognizer{text: "ignored"}
	m := NewMatcher(&unusedRenderer{t: t}, rec, nil)

	tpls := []entity.Template{{Name: "anchored", AnchorText: "chybí"}}

	results, err := m.MatchAndExtract(context.Background(), imageDoc(), "/nonexistent.png", "Faktura", tpls, nil)

	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, rec.calls)
}
