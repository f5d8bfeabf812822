package simfile

import (
	"bufio"
	"fmt"
)

// Parameters is the simulator run configuration.
type Parameters struct {
	SimulationTitle     string
	RunID               string
	CountryID           string
	ActualsExtractionID string
	LoadInputChangers   bool
	ActivateF2PLight    bool
}

// WriteParameterFile writes the fixed-order parameter document. The simulator
// matches on the literal labels, spacing included, and the last line carries no
// newline.
func WriteParameterFile(path string, p Parameters) error {
	return writeFile(path, func(w *bufio.Writer) error {
		_, err := w.WriteString(p.render())
		return err
	})
}

func (p Parameters) render() string {
	return fmt.Sprintf(
		"simulation title \t%s\n"+
			"run_id \t%s\n"+
			"country ID (GB,DE,FR,IT,ES) \t%s\n"+
			"Run date \t\n"+
			"Actuals extraction id  \t%s\n"+
			"Load input changers ? (True/False) \t%s\n"+
			"Activate F2P light ? (True/False) \t%s",
		p.SimulationTitle,
		p.RunID,
		p.CountryID,
		p.ActualsExtractionID,
		pyBool(p.LoadInputChangers),
		pyBool(p.ActivateF2PLight),
	)
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
