package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sanderboers48/orbat-mapper/internal/config"
	"github.com/sanderboers48/orbat-mapper/internal/logging"
	"github.com/sanderboers48/orbat-mapper/internal/model/core"
	"github.com/sanderboers48/orbat-mapper/internal/persist"
	"github.com/sanderboers48/orbat-mapper/internal/scenario"
	"github.com/sanderboers48/orbat-mapper/internal/telemetry"
)

var (
	Version   string = "0.1.0"
	BuildDate string = "unknown"
)

var (
	logger zerolog.Logger
	cfg    config.Config
	blobs  persist.Store
)

func main() {
	var err error
	cfg, err = config.Load(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	var closeLog func()
	logger, closeLog, err = logging.Setup(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	blobs, err = persist.NewStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open scenario storage")
	}
	defer blobs.Close()

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		return
	}

	switch strings.ToLower(args[0]) {
	case "version":
		fmt.Printf("orbat-mapper %s (built %s)\n", Version, BuildDate)
	case "list":
		err = listScenarios()
	case "info":
		err = withArg(args, scenarioInfo)
	case "export":
		err = withArg(args, exportScenario)
	case "import":
		if len(args) < 3 {
			usage()
			return
		}
		err = importScenario(args[1], args[2])
	case "delete":
		err = withArg(args, deleteScenario)
	case "demo":
		err = populateDemoScenario()
	default:
		usage()
	}
	if err != nil {
		logger.Fatal().Err(err).Str("command", args[0]).Msg("command failed")
	}
}

func usage() {
	fmt.Println("usage: orbat-mapper <command> [args]")
	fmt.Println()
	fmt.Println("commands:")
	fmt.Println("  version              print version information")
	fmt.Println("  list                 list stored scenarios")
	fmt.Println("  info <key>           show scenario summary")
	fmt.Println("  export <key> [file]  write a scenario document to a file or stdout")
	fmt.Println("  import <key> <file>  store a scenario document under a key")
	fmt.Println("  delete <key>         remove a stored scenario")
	fmt.Println("  demo                 create and store a sample scenario")
}

func withArg(args []string, fn func(string) error) error {
	if len(args) < 2 {
		usage()
		return nil
	}
	return fn(args[1])
}

func open(key string) (*scenario.Scenario, error) {
	s := scenario.New(key,
		scenario.WithLogger(logger),
		scenario.WithPersistence(blobs),
		scenario.WithTelemetry(telemetry.New(cfg.Telemetry, logger)),
		scenario.WithUndoDepth(cfg.UndoDepth),
	)
	if err := s.Load(context.Background(), key); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func listScenarios() error {
	keys, err := blobs.Keys(context.Background())
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Println("no stored scenarios")
		return nil
	}
	for _, key := range keys {
		fmt.Println(key)
	}
	return nil
}

func scenarioInfo(key string) error {
	s, err := open(key)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("name:        %s\n", s.Name())
	if s.Description() != "" {
		fmt.Printf("description: %s\n", s.Description())
	}
	fmt.Printf("start time:  %s\n", time.UnixMilli(s.StartTime()).UTC().Format(time.RFC3339))
	fmt.Printf("sides:       %d\n", len(s.Sides()))
	for _, sid := range s.Sides() {
		side, err := s.Side(sid)
		if err != nil {
			return err
		}
		units := 0
		for _, gid := range side.Groups {
			g, err := s.SideGroup(gid)
			if err != nil {
				return err
			}
			units += countUnits(s, g.Units)
		}
		fmt.Printf("  %-20s %d groups, %d units\n", side.Name, len(side.Groups), units)
	}
	fmt.Printf("layers:      %d\n", len(s.Layers()))
	fmt.Printf("map layers:  %d\n", len(s.MapLayers()))
	return nil
}

func countUnits(s *scenario.Scenario, ids []string) int {
	n := 0
	for _, id := range ids {
		u, err := s.Unit(id)
		if err != nil {
			continue
		}
		n += 1 + countUnits(s, u.Subordinates)
	}
	return n
}

func exportScenario(key string) error {
	s, err := open(key)
	if err != nil {
		return err
	}
	defer s.Close()

	data, err := s.ExportJSON()
	if err != nil {
		return err
	}
	if len(os.Args) > 3 {
		path := os.Args[3]
		if err := os.WriteFile(path, data, 0644); err != nil {
			return err
		}
		logger.Info().Str("key", key).Str("path", path).Msg("scenario exported")
		return nil
	}
	fmt.Println(string(data))
	return nil
}

func importScenario(key, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	s := scenario.New(key,
		scenario.WithLogger(logger),
		scenario.WithPersistence(blobs),
	)
	defer s.Close()
	if err := s.ImportJSON(data); err != nil {
		return err
	}
	if err := s.Save(context.Background(), key); err != nil {
		return err
	}
	logger.Info().Str("key", key).Str("path", path).Msg("scenario imported")
	return nil
}

func deleteScenario(key string) error {
	if err := blobs.Delete(context.Background(), key); err != nil {
		return err
	}
	logger.Info().Str("key", key).Msg("scenario deleted")
	return nil
}

// populateDemoScenario builds a small two-sided scenario through the regular
// editing operations and stores it under "demo".
func populateDemoScenario() error {
	start := time.Date(2026, 6, 14, 6, 0, 0, 0, time.UTC).UnixMilli()
	s := scenario.New("Demo scenario",
		scenario.WithLogger(logger),
		scenario.WithPersistence(blobs),
		scenario.WithStartTime(start),
	)
	defer s.Close()
	s.SetMeta("Demo scenario", "Generated sample data")

	blue, err := s.AddSide("Blue", "friendly")
	if err != nil {
		return err
	}
	red, err := s.AddSide("Red", "hostile")
	if err != nil {
		return err
	}

	for _, side := range []struct {
		id    string
		group string
		sidc  string
	}{
		{blue, "1st Battalion", "SFGPUCI----D"},
		{red, "Motor Rifle Battalion", "SHGPUCIZ---E"},
	} {
		gid, err := s.AddSideGroup(side.id, side.group)
		if err != nil {
			return err
		}
		hq, err := s.AddUnit(gid, "", side.group+" HQ", side.sidc)
		if err != nil {
			return err
		}
		for i := 0; i < 3; i++ {
			uid, err := s.AddUnit(gid, hq, fmt.Sprintf("Company %d", i+1), side.sidc)
			if err != nil {
				return err
			}
			for j := 0; j < 4; j++ {
				t := start + int64(j)*30*60*1000
				err = s.AddUnitState(uid, core.UnitState{
					T:        t,
					Location: core.Position3D{X: 14.5 + float64(i)*0.05 + float64(j)*0.01, Y: 50.1 + float64(j)*0.02},
				})
				if err != nil {
					return err
				}
			}
		}
	}

	lid, err := s.AddLayer("Operations")
	if err != nil {
		return err
	}
	_, err = s.AddFeature(lid,
		core.Geometry{Type: core.GeometryLineString, Line: [][]float64{{14.5, 50.1}, {14.7, 50.2}, {14.9, 50.25}}},
		core.FeatureStyle{Stroke: "#1e40af", StrokeWidth: 2},
		core.FeatureMeta{Name: "PL Viper", TypeTag: "phase-line", Visible: true},
	)
	if err != nil {
		return err
	}
	_, err = s.AddMapLayer(core.ScenarioMapLayer{
		Name:    "OpenStreetMap",
		Type:    core.MapLayerTile,
		URL:     "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Opacity: 1,
	})
	if err != nil {
		return err
	}

	if err := s.Save(context.Background(), "demo"); err != nil {
		return err
	}
	logger.Info().Msg("demo scenario stored under key \"demo\"")
	return nil
}
