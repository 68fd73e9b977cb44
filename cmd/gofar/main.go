// Command gofar runs the flight-phase controller against the flight board or a
// simulated flight and writes telemetry sentences to stdout.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"gonum.org/v1/plot/vg"

	"github.com/itohio/gofar/pkg/config"
	"github.com/itohio/gofar/pkg/flight"
	"github.com/itohio/gofar/pkg/reactions"
	"github.com/itohio/gofar/pkg/runner"
	"github.com/itohio/gofar/pkg/sample"
	"github.com/itohio/gofar/pkg/scope"
	"github.com/itohio/gofar/pkg/sensor"
	"github.com/itohio/gofar/pkg/telemetry"
)

// summaryPoints is how many history samples are logged after the run.
const summaryPoints = 20

const (
	plotWidth  = 10 * vg.Inch
	plotHeight = 8 * vg.Inch
)

func main() {
	var (
		configFlag      = pflag.StringP("config", "c", "config.yaml", "Configuration file path")
		portFlag        = pflag.StringP("port", "p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		mockFlag        = pflag.Bool("mock", false, "Fly a simulated flight instead of reading the serial port")
		drogueFailsFlag = pflag.Bool("drogue-fails", false, "Simulate a drogue that does not open (with --mock)")
		telemetryFlag   = pflag.Bool("telemetry", true, "Write telemetry sentences to stdout")
		eventsFlag      = pflag.Bool("events", false, "Include every derived event in the telemetry")
		listPortsFlag   = pflag.Bool("list-ports", false, "List serial ports and exit")
		plotFlag        = pflag.String("plot", "", "Save the flight profile as PNG to this file")
	)
	pflag.Parse()

	if *listPortsFlag {
		ports, err := sensor.Ports()
		if err != nil {
			log.Fatal(err)
		}
		for _, p := range ports {
			fmt.Println(p.Name)
		}
		return
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if pflag.CommandLine.Changed("drogue-fails") {
		cfg.Simulation.DrogueFails = *drogueFailsFlag
	}
	if pflag.CommandLine.Changed("telemetry") {
		cfg.Telemetry.Enabled = *telemetryFlag
	}

	if err := run(cfg, *mockFlag, *eventsFlag, *plotFlag); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *config.Config, useMock, events bool, plotPath string) error {
	var (
		source    sensor.Source
		actuators reactions.Actuators
	)
	if useMock {
		source = sensor.NewMock(cfg)
		actuators = reactions.LogActuators{}
	} else {
		dev := sensor.NewSerial(cfg.Serial.Port, cfg.Serial.BaudRate, sensor.DefaultBufferSize, cfg.Serial.ConnectRetries)
		source = dev
		actuators = reactions.NewCommandActuators(dev)
	}

	var observers flight.Observers
	if cfg.Reactions.Enabled {
		observers = append(observers, reactions.New(actuators))
	}
	var tw *telemetry.Writer
	if cfg.Telemetry.Enabled {
		var opts []telemetry.Option
		if events {
			opts = append(opts, telemetry.WithEvents())
		}
		tw = telemetry.NewWriter(os.Stdout, cfg.Telemetry.DataEvery, opts...)
		observers = append(observers, tw)
	}

	r := runner.New(observers)
	log.Printf("Session %s", r.Session())

	landed := make(chan struct{}, 1)
	r.OnUpdate(func(st runner.Status) {
		if st.State == flight.Landed {
			select {
			case landed <- struct{}{}:
			default:
			}
		}
	})

	if err := source.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	convert := sample.NewPipeline(&cfg.Sensor, sensor.DefaultBufferSize)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.ProcessSamples(convert(source.Samples()))
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		log.Printf("Interrupted")
	case <-landed:
		log.Printf("Landed")
	case <-done:
	}

	if err := source.Close(); err != nil {
		log.Printf("Error closing source: %v", err)
	}
	<-done

	summarize(r)

	if plotPath != "" {
		sc := scope.New(scope.DefaultMaxPoints)
		sc.UpdateData(r.History(scope.DefaultMaxPoints), r.Status().Transitions)
		if err := sc.Save(plotPath, plotWidth, plotHeight); err != nil {
			return err
		}
		log.Printf("Flight profile saved to %s", plotPath)
	}

	if tw != nil {
		if err := tw.Err(); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}
	return nil
}

func summarize(r *runner.Runner) {
	st := r.Status()
	log.Printf("Final state %v after %d samples", st.State, st.Samples)
	if st.HasGround {
		log.Printf("Ground pressure %.3f mbar", st.GroundPressure)
	}
	if st.HasPeak {
		log.Printf("Peak pressure %.3f mbar", st.PeakPressure)
	}
	if st.InFlight {
		log.Printf("Flight time %v", st.FlightTime)
	}
	for _, tr := range st.Transitions {
		log.Printf("  %10d %v", tr.Timestamp, tr.State)
	}
	for _, s := range r.History(summaryPoints) {
		log.Printf("  %10d %9.3f mbar %6.2f m/s²", s.Timestamp, s.Pressure, s.Acceleration)
	}
}
