// Package render turns validated slide specs into a PowerPoint file. Shapes
// are placed at the exact EMU boxes the template geometry prescribes, so the
// output mirrors what the capacity model measured.
package render

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	ppt "github.com/VantageDataChat/GoPPT"

	"github.com/slaide-studio/slaide/internal/assets"
	"github.com/slaide-studio/slaide/internal/capacity"
	"github.com/slaide-studio/slaide/internal/catalog"
	"github.com/slaide-studio/slaide/internal/geometry"
	"github.com/slaide-studio/slaide/internal/models"
)

const (
	titleColor = "FF1F2937"
	bodyColor  = "FF374151"
)

// Renderer writes decks with a fixed font model so measured capacity and
// rendered text agree.
type Renderer struct {
	Fonts   capacity.Fonts
	Title   string
	Creator string
}

// New returns a Renderer with the default font model.
func New() *Renderer {
	return &Renderer{Fonts: capacity.DefaultFonts()}
}

// Render produces the .pptx bytes for the given specs. Bindings are rendered
// in placeholder-index order. An image binding whose asset is missing from
// the pool is an error: specs are validated before rendering, so a dangling
// reference means the caller broke the pipeline contract.
func (r *Renderer) Render(specs []models.SlideSpec, t *geometry.Template, pool *assets.Pool) ([]byte, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("no slides to render")
	}

	p := ppt.New()
	p.GetDocumentProperties().Title = r.Title
	p.GetDocumentProperties().Creator = r.Creator

	for i, spec := range specs {
		layout, ok := t.Layout(spec.LayoutName)
		if !ok {
			return nil, fmt.Errorf("rendering slide %d: layout %q not in template", i, spec.LayoutName)
		}

		var slide *ppt.Slide
		if i == 0 {
			slide = p.GetActiveSlide()
		} else {
			slide = p.CreateSlide()
		}

		indices := make([]int, 0, len(spec.Bindings))
		for idx := range spec.Bindings {
			indices = append(indices, idx)
		}
		sort.Ints(indices)

		for _, idx := range indices {
			binding := spec.Bindings[idx]
			ph, ok := layout.Placeholder(idx)
			if !ok {
				return nil, fmt.Errorf("rendering slide %d: placeholder %d not in layout %q", i, idx, layout.Name)
			}

			switch binding.Kind {
			case geometry.KindText:
				r.renderText(slide, ph, binding.Content)
			case geometry.KindImage:
				asset, ok := pool.ByID(binding.ImageID)
				if !ok {
					return nil, fmt.Errorf("rendering slide %d: image %q not in asset pool", i, binding.ImageID)
				}
				if err := renderImage(slide, ph, asset); err != nil {
					return nil, fmt.Errorf("rendering slide %d: %w", i, err)
				}
			default:
				return nil, fmt.Errorf("rendering slide %d: unknown binding kind %q", i, binding.Kind)
			}
		}
	}

	w, err := ppt.NewWriter(p, ppt.WriterPowerPoint2007)
	if err != nil {
		return nil, fmt.Errorf("creating pptx writer: %w", err)
	}
	var buf bytes.Buffer
	if err := w.(*ppt.PPTXWriter).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("writing pptx: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) renderText(slide *ppt.Slide, ph *geometry.Placeholder, content string) {
	shape := slide.CreateRichTextShape()
	shape.SetOffsetX(ph.Position.Left).SetOffsetY(ph.Position.Top)
	shape.SetWidth(ph.Position.Width).SetHeight(ph.Position.Height)

	role := catalog.Role(*ph)
	font := r.Fonts.ForRole(role)

	paragraphs := strings.Split(content, "\n")
	for i, para := range paragraphs {
		if i > 0 {
			shape.CreateParagraph()
		}
		if para == "" {
			para = " "
		}
		tr := shape.CreateTextRun(para)
		tr.GetFont().SetSize(int(font.SizePt))
		if role == capacity.RoleTitle {
			tr.GetFont().SetBold(true).SetColor(ppt.NewColor(titleColor))
			shape.GetActiveParagraph().SetAlignment(ppt.NewAlignment().SetHorizontal(ppt.HorizontalCenter))
		} else {
			tr.GetFont().SetColor(ppt.NewColor(bodyColor))
		}
	}
}

func renderImage(slide *ppt.Slide, ph *geometry.Placeholder, asset *assets.Asset) error {
	// Aspect-fit inside the placeholder box rather than stretching.
	fit, err := capacity.FitImage(ph.Position, asset.AspectRatio)
	if err != nil {
		return err
	}
	shape := slide.CreateDrawingShape()
	shape.SetImageData(asset.Bytes, asset.MimeType)
	shape.SetOffsetX(fit.Left).SetOffsetY(fit.Top)
	shape.SetWidth(fit.Width).SetHeight(fit.Height)
	return nil
}
