package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/abdul-hamid-achik/tplspec/packages/core/runner"
)

// JUnitTestSuites is the root element
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite groups the test files of one directory
type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Time      float64         `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr,omitempty"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase represents a single test file
type JUnitTestCase struct {
	XMLName    xml.Name      `xml:"testcase"`
	Name       string        `xml:"name,attr"`
	ClassName  string        `xml:"classname,attr"`
	Time       float64       `xml:"time,attr"`
	Assertions int64         `xml:"assertions,attr"`
	Failure    *JUnitFailure `xml:"failure,omitempty"`
	Error      *JUnitError   `xml:"error,omitempty"`
}

// JUnitFailure is an assertion failure
type JUnitFailure struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitError is a load, parse or render failure
type JUnitError struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitFormatter formats test results as JUnit XML
type JUnitFormatter struct {
	writer     io.Writer
	testSuites []JUnitTestSuite
}

type JUnitOption func(*JUnitFormatter)

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{
		writer:     os.Stdout,
		testSuites: make([]JUnitTestSuite, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		f.writer = w
	}
}

func (f *JUnitFormatter) FormatResult(result *runner.RunResult) {
	timestamp := time.Now().Format(time.RFC3339)
	index := make(map[string]int)

	for _, r := range result.Results {
		dir := filepath.Dir(r.File)
		i, ok := index[dir]
		if !ok {
			i = len(f.testSuites)
			index[dir] = i
			f.testSuites = append(f.testSuites, JUnitTestSuite{Name: dir, Timestamp: timestamp})
		}
		suite := &f.testSuites[i]

		tc := JUnitTestCase{
			Name:       r.Name,
			ClassName:  dir,
			Time:       r.Duration.Seconds(),
			Assertions: r.Assertions,
		}
		switch {
		case r.Passed:
		case r.Kind == runner.KindAssertion:
			suite.Failures++
			tc.Failure = &JUnitFailure{
				Message: "Assertion failed",
				Type:    "AssertionError",
				Content: r.Error.Error(),
			}
		default:
			suite.Errors++
			tc.Error = &JUnitError{
				Message: fmt.Sprintf("%s error", r.Kind),
				Type:    string(r.Kind),
			}
			if r.Error != nil {
				tc.Error.Content = r.Error.Error()
			}
		}

		suite.Tests++
		suite.Time += r.Duration.Seconds()
		suite.TestCases = append(suite.TestCases, tc)
	}
}

func (f *JUnitFormatter) FormatError(err error) {
	// Errors are included in individual test cases
}

func (f *JUnitFormatter) FormatHeader(version string) {
	// No header needed for JUnit XML
}

// Flush writes the accumulated JUnit XML output
func (f *JUnitFormatter) Flush(totalDuration time.Duration) error {
	var totalTests, totalFailures, totalErrors int
	for _, suite := range f.testSuites {
		totalTests += suite.Tests
		totalFailures += suite.Failures
		totalErrors += suite.Errors
	}

	suites := JUnitTestSuites{
		Name:       "tplspec",
		Tests:      totalTests,
		Failures:   totalFailures,
		Errors:     totalErrors,
		Time:       totalDuration.Seconds(),
		Timestamp:  time.Now().Format(time.RFC3339),
		TestSuites: f.testSuites,
	}

	fmt.Fprintf(f.writer, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	encoder := xml.NewEncoder(f.writer)
	encoder.Indent("", "  ")
	if err := encoder.Encode(suites); err != nil {
		return err
	}
	_, err := fmt.Fprintln(f.writer)
	return err
}
