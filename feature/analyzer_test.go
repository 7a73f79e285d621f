package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzer_Tokens(t *testing.T) {
	tests := []struct {
		name string
		cfg  AnalyzerConfig
		text string
		want []string
	}{
		{
			name: "french defaults",
			cfg:  DefaultAnalyzerConfig(),
			text: "Le film raconte l'histoire d'un Homme",
			want: []string{"raconte", "homme"},
		},
		{
			name: "single characters dropped",
			cfg:  AnalyzerConfig{StopWords: StopWordsNone},
			text: "a b cd 2 42",
			want: []string{"cd", "42"},
		},
		{
			name: "english stop words",
			cfg:  AnalyzerConfig{StopWords: StopWordsEnglish},
			text: "The Ant and the Wasp",
			want: []string{"ant", "wasp"},
		},
		{
			name: "extra stop words are case insensitive",
			cfg:  AnalyzerConfig{StopWords: StopWordsNone, ExtraStopWords: []string{" Marvel "}},
			text: "marvel heroes",
			want: []string{"heroes"},
		},
		{
			name: "empty text",
			cfg:  DefaultAnalyzerConfig(),
			text: "",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAnalyzer(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.Tokens(tt.text))
		})
	}
}

func TestNewAnalyzer_UnknownLanguage(t *testing.T) {
	_, err := NewAnalyzer(AnalyzerConfig{StopWords: "klingon"})
	assert.Error(t, err)
}
