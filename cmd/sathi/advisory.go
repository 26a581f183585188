package main

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cropsathi/sathi/internal/advisory"
	"github.com/cropsathi/sathi/internal/api"
	"github.com/cropsathi/sathi/internal/form"
)

func newAdvisoryCmd() *cobra.Command {
	var (
		configPath    string
		crop          string
		stage         int
		soil          string
		lat, lon      float64
		sms           bool
		whatsapp      bool
		voice         bool
		marketTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "advisory",
		Short: "Request a farm advisory",
		Long:  "Submits the advisory form and prints the personalized advisory. The market price section loads independently and is reported when it arrives.",
		RunE: func(cmd *cobra.Command, args []string) error {
			loc := (*api.GPSLocation)(nil)
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
				loc = &api.GPSLocation{Latitude: lat, Longitude: lon}
			}
			return runAdvisory(cmd, advisoryParams{
				configPath:    configPath,
				crop:          crop,
				stage:         stage,
				soil:          soil,
				location:      loc,
				sms:           sms,
				whatsapp:      whatsapp,
				voice:         voice,
				marketTimeout: marketTimeout,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to Sathi config file")
	cmd.Flags().StringVar(&crop, "crop", "", "crop to request an advisory for")
	cmd.Flags().IntVar(&stage, "stage", 0, "growth stage index (see 'sathi crops')")
	cmd.Flags().StringVar(&soil, "soil", "", "soil type")
	cmd.Flags().Float64Var(&lat, "lat", 0, "field latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "field longitude")
	cmd.Flags().BoolVar(&sms, "sms", true, "also deliver by SMS")
	cmd.Flags().BoolVar(&whatsapp, "whatsapp", false, "also deliver by WhatsApp")
	cmd.Flags().BoolVar(&voice, "voice", false, "also deliver by voice call")
	cmd.Flags().DurationVar(&marketTimeout, "market-timeout", 10*time.Second, "how long to wait for the market price section")
	cmd.MarkFlagRequired("crop")
	cmd.MarkFlagRequired("soil")
	return cmd
}

type advisoryParams struct {
	configPath    string
	crop          string
	stage         int
	soil          string
	location      *api.GPSLocation
	sms           bool
	whatsapp      bool
	voice         bool
	marketTimeout time.Duration
}

func runAdvisory(cmd *cobra.Command, p advisoryParams) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, p.configPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	// The local cache is best-effort; advisory submission works without it.
	var rec advisory.Recorder
	if st, err := a.openCache(); err != nil {
		log.Printf("sathi: open cache: %v", err)
	} else {
		rec = st
	}

	orch, err := a.newOrchestrator(rec)
	if err != nil {
		return err
	}

	cat, err := a.catalog.Load(ctx)
	if err != nil {
		return err
	}

	ctrl := form.NewController(cat)
	ctrl.SelectCrop(p.crop)
	ctrl.SetStage(p.stage)
	ctrl.SetSoil(p.soil)
	if p.location != nil {
		ctrl.SetLocation(p.location.Latitude, p.location.Longitude)
	}
	ctrl.SetChannels(p.sms, p.whatsapp, p.voice)

	// Market updates arrive asynchronously; collect them before submitting
	// so the post-submission notification cannot be missed.
	updates := make(chan advisory.View, 4)
	orch.Subscribe(func(v advisory.View) {
		select {
		case updates <- v:
		default:
		}
	})

	v, err := orch.Submit(ctx, ctrl.State())
	if err != nil {
		return err
	}

	printAdvisory(out, v)

	if v.Market == advisory.MarketPending {
		v = waitForMarket(updates, v, p.marketTimeout)
	}
	printMarket(out, v)
	return nil
}

// waitForMarket blocks until the market section of the given submission
// resolves, or the timeout passes.
func waitForMarket(updates <-chan advisory.View, cur advisory.View, timeout time.Duration) advisory.View {
	deadline := time.After(timeout)
	for {
		select {
		case v := <-updates:
			if v.Seq != cur.Seq {
				continue
			}
			if v.Market != advisory.MarketPending {
				return v
			}
			cur = v
		case <-deadline:
			return cur
		}
	}
}

func printAdvisory(out io.Writer, v advisory.View) {
	fmt.Fprintf(out, "Advisory for %s (%s)\n", v.Crop, v.Stage)
	adv := v.Advisory
	if adv == nil {
		return
	}
	if adv.Recommendation != "" {
		fmt.Fprintf(out, "\n%s\n", adv.Recommendation)
	}
	if adv.DailyAdvice != "" {
		fmt.Fprintf(out, "\nToday: %s\n", adv.DailyAdvice)
	}
	if adv.SoilRecommendation != "" {
		fmt.Fprintf(out, "Soil: %s\n", adv.SoilRecommendation)
	}
	if w := adv.CurrentWeather; w != nil {
		fmt.Fprintf(out, "\nWeather: %.1f C, %s\n", w.Temp, w.Description)
	}
	if len(adv.PestPredictions) > 0 {
		fmt.Fprintln(out, "\nPest risk:")
		for _, p := range adv.PestPredictions {
			fmt.Fprintf(out, "  %s: %s\n", p.Pest, p.Risk)
		}
	}
	if len(adv.GovtSchemes) > 0 {
		fmt.Fprintln(out, "\nGovernment schemes:")
		for _, s := range adv.GovtSchemes {
			fmt.Fprintf(out, "  %s: %s\n", s.Name, s.Description)
		}
	}
}

func printMarket(out io.Writer, v advisory.View) {
	switch v.Market {
	case advisory.MarketReady:
		if v.Prices == nil || len(v.Prices.History) == 0 {
			fmt.Fprintln(out, "\nMarket price: no data")
			return
		}
		latest := v.Prices.History[len(v.Prices.History)-1]
		fmt.Fprintf(out, "\nMarket price (%s): %.2f %s\n", latest.Date, latest.Price, v.Prices.Unit)
	case advisory.MarketUnavailable:
		fmt.Fprintln(out, "\nMarket price: unavailable")
	default:
		fmt.Fprintln(out, "\nMarket price: still loading, check the dashboard")
	}
}

// formatStages renders a crop's stages as "0:sowing 1:growth ...".
func formatStages(stages []string) string {
	parts := make([]string, len(stages))
	for i, s := range stages {
		parts[i] = fmt.Sprintf("%d:%s", i, s)
	}
	return strings.Join(parts, " ")
}
