package gemini

import (
	"testing"

	gogenai "github.com/google/generative-ai-go/genai"
)

func TestResponseText(t *testing.T) {
	resp := &gogenai.GenerateContentResponse{
		Candidates: []*gogenai.Candidate{
			{Content: &gogenai.Content{Parts: []gogenai.Part{gogenai.Text("Restart "), gogenai.Text("the client. ")}}},
			{Content: &gogenai.Content{Parts: []gogenai.Part{gogenai.Text("ignored")}}},
		},
	}
	if got := responseText(resp); got != "Restart the client." {
		t.Errorf("responseText() = %q", got)
	}
	if got := responseText(nil); got != "" {
		t.Errorf("responseText(nil) = %q", got)
	}
	if got := responseText(&gogenai.GenerateContentResponse{Candidates: []*gogenai.Candidate{{}}}); got != "" {
		t.Errorf("empty candidate = %q", got)
	}
}
