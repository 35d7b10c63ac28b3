// Package seed fills a store with sample defects for demos and manual
// testing of the reports.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math/rand/v2"

	"defectlog/internal/catalog"
	"defectlog/pkg/types"

	"github.com/sirupsen/logrus"
)

// RemarksPrefix marks seeded rows so they can be removed again.
const RemarksPrefix = "[seed] "

var sampleLocations = []string{
	"L1 Lift Lobby",
	"L2 Corridor near Unit 2B",
	"L3 Unit 3A Kitchen",
	"L5 Unit 5C Master Bathroom",
	"L7 Plant Room",
	"L9 Unit 9D Balcony",
	"L12 Refuge Floor",
	"Roof Main Water Tank",
	"B1 Car Park Ramp",
	"G/F Entrance Lobby",
}

var sampleRemarks = []string{
	"Observed during joint inspection, contractor notified on site.",
	"Repeat finding from previous walkdown.",
	"Photo taken before ceiling close up.",
	"Requires retest after rectification.",
	"Access panel removed for inspection.",
}

type weightedServiceType struct {
	ServiceType types.ServiceType
	Weight      int
}

var weightedServiceTypes = []weightedServiceType{
	{ServiceType: types.ServiceTypePD, Weight: 30},
	{ServiceType: types.ServiceTypeFS, Weight: 20},
	{ServiceType: types.ServiceTypeMVAC, Weight: 20},
	{ServiceType: types.ServiceTypeEL, Weight: 20},
	{ServiceType: types.ServiceTypeBonding, Weight: 10},
}

var swatches = map[types.ServiceType]color.RGBA{
	types.ServiceTypePD:      {R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	types.ServiceTypeFS:      {R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	types.ServiceTypeMVAC:    {R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	types.ServiceTypeEL:      {R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	types.ServiceTypeBonding: {R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
}

// Capturer records one defect with its photo supplied as a stream.
type Capturer interface {
	CaptureUpload(ctx context.Context, input types.NewDefect, ext string, photo io.Reader) (*types.Defect, error)
}

// Remover deletes previously seeded defects.
type Remover interface {
	DeleteDefectsWithRemarksPrefix(ctx context.Context, prefix string) (int64, error)
}

type Options struct {
	Projects []string
	Count    int
	// Reset removes earlier seeded defects first.
	Reset bool
	// Seed fixes the random source; zero picks a random one.
	Seed uint64
}

// SeedSampleDefects captures opts.Count defects spread across opts.Projects.
// Every service type in the catalog gets at least one defect when Count
// allows it. Photos are small solid colour PNGs, one colour per service type.
func SeedSampleDefects(
	ctx context.Context,
	logger *logrus.Logger,
	cat *catalog.Catalog,
	capturer Capturer,
	remover Remover,
	opts Options,
) ([]*types.Defect, error) {
	if opts.Count <= 0 {
		logger.Info("skipping defect seed because count <= 0")
		return nil, nil
	}
	if len(opts.Projects) == 0 {
		return nil, fmt.Errorf("at least one project is required")
	}

	if opts.Reset {
		n, err := remover.DeleteDefectsWithRemarksPrefix(ctx, RemarksPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to reset seeded defects: %w", err)
		}
		logger.WithField("deleted", n).Info("reset seeded defects")
	}

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x5eed))

	codes := cat.Codes()
	created := make([]*types.Defect, 0, opts.Count)
	for i := range opts.Count {
		serviceType := pickWeightedServiceType(rng)
		if i < len(codes) {
			serviceType = codes[i]
		}

		categories := cat.Categories(serviceType)
		if len(categories) == 0 {
			return created, fmt.Errorf("service type %s has no categories", serviceType)
		}

		input := types.NewDefect{
			ProjectTitle: opts.Projects[rng.IntN(len(opts.Projects))],
			ServiceType:  serviceType,
			Category:     categories[rng.IntN(len(categories))],
			Location:     sampleLocations[rng.IntN(len(sampleLocations))],
			Remarks:      RemarksPrefix + sampleRemarks[rng.IntN(len(sampleRemarks))],
		}

		photo, err := swatchPNG(serviceType)
		if err != nil {
			return created, err
		}

		defect, err := capturer.CaptureUpload(ctx, input, ".png", bytes.NewReader(photo))
		if err != nil {
			return created, fmt.Errorf("failed to create sample defect %d: %w", i+1, err)
		}
		created = append(created, defect)
	}

	logger.WithField("created", len(created)).Info("sample defects seeded")
	return created, nil
}

func pickWeightedServiceType(rng *rand.Rand) types.ServiceType {
	total := 0
	for _, item := range weightedServiceTypes {
		total += item.Weight
	}

	roll := rng.IntN(total)
	running := 0
	for _, item := range weightedServiceTypes {
		running += item.Weight
		if roll < running {
			return item.ServiceType
		}
	}

	return types.ServiceTypePD
}

func swatchPNG(serviceType types.ServiceType) ([]byte, error) {
	c, ok := swatches[serviceType]
	if !ok {
		c = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
	}

	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := range 48 {
		for x := range 64 {
			img.SetRGBA(x, y, c)
		}
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode sample photo: %w", err)
	}
	return buf.Bytes(), nil
}
