package cli_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/intygscan/internal/testutil"
	"github.com/MeKo-Tech/intygscan/test/integration/cli/support"
)

// InitializeScenario gives each scenario a fresh context and store.
func InitializeScenario(sc *godog.ScenarioContext) {
	testContext, err := support.NewTestContext()
	if err != nil {
		panic(fmt.Sprintf("Failed to create test context: %v", err))
	}

	testContext.RegisterCommonSteps(sc)
	testContext.RegisterServerSteps(sc)

	sc.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		if cleanupErr := testContext.Cleanup(); cleanupErr != nil {
			fmt.Printf("Warning: Failed to cleanup test context: %v\n", cleanupErr)
		}
		return ctx, nil
	})
}

// TestFeatures runs every feature file under features/.
func TestFeatures(t *testing.T) {
	entries, err := os.ReadDir("features")
	if err != nil {
		t.Fatalf("failed to read features directory: %v", err)
	}

	format := os.Getenv("GODOG_FORMAT")
	if format == "" {
		format = "pretty"
	}
	tags := os.Getenv("GODOG_TAGS")

	var features []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".feature") {
			features = append(features, e.Name())
		}
	}
	if len(features) == 0 {
		t.Fatal("no .feature files in features/")
	}

	for _, name := range features {
		featurePath := filepath.Join("features", name)
		t.Run(strings.TrimSuffix(name, ".feature"), func(t *testing.T) {
			suite := godog.TestSuite{
				ScenarioInitializer: InitializeScenario,
				Options: &godog.Options{
					Format:   format,
					Tags:     tags,
					Paths:    []string{featurePath},
					Strict:   true,
					TestingT: t,
				},
			}
			if status := suite.Run(); status != 0 {
				t.Fatalf("%s: godog exited with status %d", featurePath, status)
			}
		})
	}
}

// TestMain compiles the CLI once into a temporary directory, unless
// INTYGSCAN_BIN already points at a binary.
func TestMain(m *testing.M) {
	os.Exit(runWithBinary(m))
}

func runWithBinary(m *testing.M) int {
	if bin := os.Getenv("INTYGSCAN_BIN"); bin != "" {
		if _, err := os.Stat(bin); err == nil {
			return m.Run()
		}
	}

	root, err := testutil.GetProjectRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "project root: %v\n", err)
		return 1
	}
	binDir, err := os.MkdirTemp("", "intygscan-bin-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "bin dir: %v\n", err)
		return 1
	}
	defer func() { _ = os.RemoveAll(binDir) }()

	bin := filepath.Join(binDir, "intygscan")
	build := exec.CommandContext(context.Background(), "go", "build", "-o", bin, "./cmd/intygscan")
	build.Dir = root
	if out, err := build.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "go build ./cmd/intygscan: %v\n%s\n", err, out)
		return 1
	}

	_ = os.Setenv("INTYGSCAN_BIN", bin)
	return m.Run()
}
