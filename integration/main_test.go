//go:build integration

package integration

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jwebster45206/dungeon-master/integration/runner"
)

var caseFlag = flag.String("case", "", "Name of test case to run (from integration/cases/)")
var errFlag = flag.String("err", "continue", "Error handling mode: 'continue' (run all steps) or 'exit' (stop on first failure)")
var runsFlag = flag.Int("runs", 1, "Number of times to run each test suite (useful for testing non-deterministic behavior)")
var keepFlag = flag.Bool("keep", false, "Keep games after each suite for inspection")

func TestMain(m *testing.M) {
	fmt.Printf("Running Dungeon Master Integration Tests\n")
	fmt.Printf("   API Base URL: %s\n", baseURL())
	os.Exit(m.Run())
}

func baseURL() string {
	if u := os.Getenv("API_BASE_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func newRunner(mode runner.ErrorHandlingMode) *runner.Runner {
	r := runner.NewRunner(baseURL())
	r.Timeout = time.Duration(getIntEnv("TEST_TIMEOUT_SECONDS", 30)) * time.Second
	r.ErrorHandlingMode = mode
	r.KeepGames = *keepFlag
	r.Logger = func(format string, args ...any) {
		fmt.Printf(format+"\n", args...)
	}
	return r
}

func TestIntegrationSuites(t *testing.T) {
	if *caseFlag != "" {
		t.Skip("Skipping bulk suites (-case given)")
	}
	testRunner := newRunner(runner.ErrorHandlingContinue)

	testFiles, err := discoverTestFiles("cases")
	if err != nil {
		t.Fatalf("Failed to discover test files: %v", err)
	}
	if len(testFiles) == 0 {
		t.Fatal("No test files found in cases directory")
	}

	var jobs []runner.TestJob
	for _, file := range testFiles {
		suite, err := runner.LoadTestSuite(file)
		if err != nil {
			t.Errorf("Failed to load test suite %s: %v", file, err)
			continue
		}
		// sequences only re-run cases that are already discovered
		if suite.IsSequence() {
			continue
		}
		jobs = append(jobs, runner.TestJob{Name: suite.Name, Suite: suite, CaseFile: file})
	}
	if len(jobs) == 0 {
		t.Fatal("No valid test suites loaded")
	}

	t.Logf("Loaded %d test suites", len(jobs))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	var failed, passed []string
	for i, job := range jobs {
		t.Logf("[%d/%d] Starting test suite: %s (%d steps)", i+1, len(jobs), job.Name, len(job.Suite.Steps))

		result, err := testRunner.RunSuite(ctx, job.Suite)
		if err != nil && result.Error == nil {
			result.Error = err
		}
		t.Logf("Game ID: %s", result.GameID)

		if result.Error != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", job.Name, result.Error))
			t.Errorf("[%d/%d] FAILED: Test suite '%s' failed: %v", i+1, len(jobs), job.Name, result.Error)
			continue
		}
		passed = append(passed, job.Name)
		t.Logf("[%d/%d] PASSED: Test suite '%s' completed in %v", i+1, len(jobs), job.Name, result.Duration)
		logSteps(t, result)
	}

	t.Logf("Integration Test Summary:")
	t.Logf("   Passed: %d", len(passed))
	t.Logf("   Failed: %d", len(failed))
	if len(failed) > 0 {
		for _, failure := range failed {
			t.Logf("   - %s", failure)
		}
		t.Fatalf("Integration tests failed")
	}
}

// TestSingleSuite runs the suites named by -case, comma-separated.
func TestSingleSuite(t *testing.T) {
	if *caseFlag == "" {
		t.Skip("Skipping single suite test (use -case flag to run)")
	}
	if *errFlag != "exit" && *errFlag != "continue" {
		t.Fatalf("Invalid -err flag value: %s (must be 'exit' or 'continue')", *errFlag)
	}
	runs := *runsFlag
	if runs < 1 {
		t.Fatalf("Number of runs must be >= 1, got: %d", runs)
	}

	var suiteFiles []string
	for _, name := range strings.Split(*caseFlag, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !strings.HasSuffix(name, ".json") {
			name += ".json"
		}
		suiteFiles = append(suiteFiles, filepath.Join("cases", name))
	}

	// multi-run always continues so the statistics are complete
	mode := runner.ErrorHandlingMode(*errFlag)
	if runs > 1 {
		mode = runner.ErrorHandlingContinue
	}
	testRunner := newRunner(mode)

	stats := make(map[string]*caseStats)
	var order []string
	var failures []failureDetail

	for run := 1; run <= runs; run++ {
		if runs > 1 {
			t.Logf("=== RUN %d/%d ===", run, runs)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)

		for _, file := range suiteFiles {
			jobs, err := runner.LoadTestSuiteWithExpansion(file, "cases")
			if err != nil {
				t.Errorf("Failed to load test suite %s: %v", file, err)
				continue
			}
			for _, job := range jobs {
				s, ok := stats[job.Name]
				if !ok {
					s = &caseStats{}
					stats[job.Name] = s
					order = append(order, job.Name)
				}

				result, err := testRunner.RunSuite(ctx, job.Suite)
				if err != nil && result.Error == nil {
					result.Error = err
				}
				t.Logf("Game ID: %s", result.GameID)

				if result.Error != nil {
					s.failures++
					t.Errorf("FAILED: Test suite '%s' failed: %v", job.Name, result.Error)
				} else {
					s.passes++
					t.Logf("PASSED: Test suite '%s' completed in %v", job.Name, result.Duration)
				}
				for _, sr := range result.Results {
					if !sr.Success && sr.Error != nil {
						failures = append(failures, failureDetail{caseName: job.Name, stepName: sr.StepName, error: sr.Error.Error(), run: run})
					}
				}
				logSteps(t, result)

				if result.Error != nil && mode == runner.ErrorHandlingExit {
					cancel()
					t.Fatalf("Test suite(s) had errors")
				}
			}
		}
		cancel()
	}

	if runs > 1 {
		t.Log(buildFinalReport(order, stats))
	}
	if len(failures) > 0 {
		t.Log(buildFailureReport(failures))
		t.Fatalf("Test suite(s) had errors")
	}
}

func logSteps(t *testing.T, result runner.TestRunResult) {
	t.Helper()
	for _, sr := range result.Results {
		switch {
		case sr.IsReset:
			t.Logf("   ↻ %s (%v)", sr.StepName, sr.Duration)
		case sr.Success:
			t.Logf("   ✓ %s (%v)", sr.StepName, sr.Duration)
		default:
			t.Logf("   ✗ %s: %v", sr.StepName, sr.Error)
		}
	}
}

type caseStats struct {
	passes, failures int
}

// failureDetail tracks information about a specific step failure
type failureDetail struct {
	caseName string
	stepName string
	error    string
	run      int
}

func buildFinalReport(order []string, stats map[string]*caseStats) string {
	var sb strings.Builder
	sb.WriteString("\n=== FINAL MULTI-RUN STATISTICS ===\n")
	for _, name := range order {
		s := stats[name]
		total := s.passes + s.failures
		if total == 0 {
			continue
		}
		fmt.Fprintf(&sb, "  %s: %d/%d passes (%.1f%%)\n", name, s.passes, total, float64(s.passes)/float64(total)*100)
		if s.passes > 0 && s.failures > 0 {
			sb.WriteString("    FLAKY: this suite both passed and failed across runs\n")
		}
	}
	return sb.String()
}

func buildFailureReport(failures []failureDetail) string {
	byCase := make(map[string][]failureDetail)
	for _, f := range failures {
		byCase[f.caseName] = append(byCase[f.caseName], f)
	}
	names := make([]string, 0, len(byCase))
	for name := range byCase {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("\nDetailed Failure Report\n")
	for _, name := range names {
		fmt.Fprintf(&sb, "\n%s (%d step failure(s)):\n", name, len(byCase[name]))
		for _, f := range byCase[name] {
			fmt.Fprintf(&sb, "  ✗ %s (run %d): %s\n", f.stepName, f.run, f.error)
		}
	}
	return sb.String()
}

func discoverTestFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".json") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func getIntEnv(name string, defaultValue int) int {
	val, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return defaultValue
	}
	return val
}
