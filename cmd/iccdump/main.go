package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	iccprofile "github.com/kpfaulkner/icc-go/profile"

	"github.com/kpfaulkner/icc-go/iccio"
	"github.com/kpfaulkner/icc-go/imageembed"
	"github.com/pkg/profile"
	log "github.com/sirupsen/logrus"
)

func main() {
	infile := flag.String("i", "", "input file (.icc, or a .png/.jpg with an embedded profile)")
	svg := flag.Bool("s", false, "write SVG plots of the TRC and A2B curves")
	prof := flag.Bool("profile", false, "write a CPU profile for this run")
	flag.Parse()

	if *infile == "" {
		fmt.Printf("usage: iccdump [-s] [-profile] -i <file>\n")
		os.Exit(1)
	}

	if *prof {
		p := profile.Start(profile.CPUProfile, profile.ProfilePath("."))
		defer p.Stop()
	}

	raw, err := loadProfileBytes(*infile)
	if err != nil {
		log.Fatalf("Error loading %s: %v", *infile, err)
	}
	if raw == nil {
		log.Fatalf("%s has no embedded ICC profile", *infile)
	}

	p, err := iccprofile.Parse(raw)
	if err != nil {
		log.Fatalf("Error parsing profile: %v", err)
	}

	dumpProfile(p)

	if *svg {
		if err := writeSVGs(p); err != nil {
			log.Errorf("Error writing SVG output: %v", err)
		}
	}
}

func loadProfileBytes(name string) ([]byte, error) {
	f, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return imageembed.FromPNG(bytes.NewReader(f))
	case ".jpg", ".jpeg":
		return imageembed.FromJPEG(bytes.NewReader(f))
	}
	return f, nil
}

func dumpProfile(p *iccprofile.Profile) {
	fmt.Printf("size             %d\n", p.Size)
	fmt.Printf("cmm type         %s\n", iccio.SigString(p.CMMType))
	fmt.Printf("version          %d.%d.%d\n", p.Version>>24, (p.Version>>20)&0xf, (p.Version>>16)&0xf)
	fmt.Printf("class            %s\n", iccio.SigString(p.Class))
	fmt.Printf("color space      %s\n", iccio.SigString(p.DataColorSpace))
	fmt.Printf("pcs              %s\n", iccio.SigString(p.PCS))
	dt := p.CreationDateTime
	fmt.Printf("created          %04d-%02d-%02d %02d:%02d:%02d\n",
		dt.Year, dt.Month, dt.Day, dt.Hour, dt.Minute, dt.Second)
	fmt.Printf("platform         %s\n", iccio.SigString(p.Platform))
	fmt.Printf("rendering intent %d\n", p.RenderingIntent)
	fmt.Printf("illuminant       %.4f %.4f %.4f\n", p.IlluminantX, p.IlluminantY, p.IlluminantZ)
	fmt.Printf("profile id       %x\n", p.ProfileID)
	fmt.Printf("tags             %d\n", p.TagCount)

	for i := uint32(0); i < p.TagCount; i++ {
		tag, err := p.TagByIndex(i)
		if err != nil {
			log.Errorf("tag %d: %v", i, err)
			continue
		}
		fmt.Printf("  %2d  %s  type %s  %d bytes\n",
			i, iccio.SigString(tag.Signature), iccio.SigString(tag.Type), len(tag.Data))
	}

	if p.HasToXYZD50 {
		fmt.Printf("toXYZD50:\n")
		for _, row := range p.ToXYZD50 {
			fmt.Printf("  %9.6f %9.6f %9.6f\n", row[0], row[1], row[2])
		}
	}
	if p.HasA2B {
		fmt.Printf("A2B: %d in, %d out, grid %v, matrix stage %v\n",
			p.A2B.InputChannels, p.A2B.OutputChannels, p.A2B.GridPoints, p.A2B.MatrixChannels != 0)
	}
}

func writeSVGs(p *iccprofile.Profile) error {
	if p.HasTRC {
		if err := writeCurvesSVG("TRC_curves.svg", p.TRC[:], rgbColors); err != nil {
			return err
		}
	}
	if p.HasA2B {
		a2b := p.A2B
		if a2b.InputChannels > 0 {
			if err := writeCurvesSVG("A_curves.svg", a2b.InputCurves[:a2b.InputChannels], cmykColors); err != nil {
				return err
			}
		}
		if a2b.MatrixChannels > 0 {
			if err := writeCurvesSVG("M_curves.svg", a2b.MatrixCurves[:a2b.MatrixChannels], rgbColors); err != nil {
				return err
			}
		}
		if err := writeCurvesSVG("B_curves.svg", a2b.OutputCurves[:a2b.OutputChannels], rgbColors); err != nil {
			return err
		}
	}
	return nil
}
