// Package report writes the audit record of a completed send.
package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ligun0805/multisender/internal/network"
	"github.com/ligun0805/multisender/internal/transfer"
)

// TimeLayout is used both in the file name and the sent_at field.
const TimeLayout = "20060102_150405"

// Network is the part of a network.Config worth keeping in an audit trail.
type Network struct {
	Name     string `yaml:"name"`
	ChainID  int64  `yaml:"chain_id"`
	Symbol   string `yaml:"symbol"`
	RPCURL   string `yaml:"rpc_url"`
	Explorer string `yaml:"explorer,omitempty"`
}

// Report is one send as it was issued and answered.
type Report struct {
	SessionID  string            `yaml:"session_id"`
	SentAt     time.Time         `yaml:"sent_at"`
	Network    Network           `yaml:"network"`
	Recipient  string            `yaml:"recipient"`
	Percentage string            `yaml:"percentage"`
	Summary    transfer.Summary  `yaml:"summary"`
	Results    []transfer.Result `yaml:"results"`
}

// New assembles a report for results sent on net.
func New(sessionID string, at time.Time, net network.Config, recipient string, percentage int, results []transfer.Result) *Report {
	return &Report{
		SessionID: sessionID,
		SentAt:    at.UTC(),
		Network: Network{
			Name:     net.Name,
			ChainID:  net.ChainID,
			Symbol:   net.Symbol,
			RPCURL:   net.RPCURL,
			Explorer: net.Explorer,
		},
		Recipient:  recipient,
		Percentage: transfer.PercentLabel(percentage),
		Summary:    transfer.Summarize(results),
		Results:    append([]transfer.Result(nil), results...),
	}
}

// FileName is send_<timestamp>.yaml for the report's send time. Write adds
// a _2, _3, ... suffix when that name is taken.
func (r *Report) FileName() string {
	return fmt.Sprintf("send_%s.yaml", r.SentAt.Format(TimeLayout))
}

// Write stores the report under dir, creating dir if needed, and returns the path.
func Write(dir string, r *Report) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	base := strings.TrimSuffix(r.FileName(), ".yaml")
	for n := 1; ; n++ {
		name := r.FileName()
		if n > 1 {
			name = fmt.Sprintf("%s_%d.yaml", base, n)
		}
		path := filepath.Join(dir, name)
		err := writeNew(path, data)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("write report: %w", err)
		}
		return path, nil
	}
}

// writeNew creates path, failing with fs.ErrExist if it is already there.
func writeNew(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// Read loads a report written by Write.
func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	r := &Report{}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return r, nil
}
