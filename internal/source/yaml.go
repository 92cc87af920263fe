package source

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"alert-digest/internal/digest"
)

// yamlRecord is the on-disk shape of one fixture message.
type yamlRecord struct {
	Subject    string `yaml:"subject"`
	Sender     string `yaml:"sender"`
	Recipient  string `yaml:"recipient"`
	ReceivedAt string `yaml:"received_at"`
	Body       string `yaml:"body"`
}

// YAML reads a list of messages from a fixture file.
type YAML struct{}

// Read decodes every message in the file. A message with an unparseable
// timestamp fails the whole file.
func (YAML) Read(path string) ([]digest.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw []yamlRecord
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	records := make([]digest.Record, 0, len(raw))
	for i, r := range raw {
		receivedAt, err := time.Parse(time.RFC3339, r.ReceivedAt)
		if err != nil {
			return nil, fmt.Errorf("record %d: parse received_at: %w", i, err)
		}
		records = append(records, digest.Record{
			Subject:    r.Subject,
			Sender:     r.Sender,
			Recipient:  r.Recipient,
			ReceivedAt: receivedAt,
			Body:       r.Body,
		})
	}
	return records, nil
}

var _ Reader = YAML{}
