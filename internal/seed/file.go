package seed

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one exercise in a catalog seed file. Field names match the
// create-exercise request body.
type Entry struct {
	Name             string `yaml:"name" json:"name"`
	Description      string `yaml:"description" json:"description,omitempty"`
	VideoURL         string `yaml:"video_url" json:"video_url,omitempty"`
	MuscleGroup      string `yaml:"muscle_group" json:"muscle_group"`
	TargetMuscle     string `yaml:"target_muscle" json:"target_muscle,omitempty"`
	SecondaryMuscles string `yaml:"secondary_muscles" json:"secondary_muscles,omitempty"`
	Mechanics        string `yaml:"mechanics" json:"mechanics,omitempty"`
	Equipment        string `yaml:"equipment" json:"equipment,omitempty"`
	DifficultyLevel  string `yaml:"difficulty_level" json:"difficulty_level,omitempty"`
}

// File is a catalog seed file.
type File struct {
	Exercises []Entry `yaml:"exercises"`
}

// LoadFile reads and checks a YAML seed file. Names must be present and
// unique ignoring case.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}

	seen := make(map[string]int, len(f.Exercises))
	for i, e := range f.Exercises {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("exercise %d: name is required", i+1)
		}
		if strings.TrimSpace(e.MuscleGroup) == "" {
			return nil, fmt.Errorf("exercise %q: muscle_group is required", name)
		}
		key := strings.ToLower(name)
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("exercise %q: duplicate of entry %d", name, prev+1)
		}
		seen[key] = i
		f.Exercises[i].Name = name
	}
	return &f, nil
}

// Hash fingerprints an entry so edited entries are sent again.
func (e Entry) Hash() string {
	data, _ := json.Marshal(e)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
