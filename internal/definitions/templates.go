package definitions

import (
	"strings"
	"text/template"
)

type promptData struct {
	ClassifierName string
	Prompt         string
	PromptShort    string
	Criteria       string
	Snippet        string
}

const outputInstructions = `Respond with only a JSON object of the form {"response": "<label>"}, where <label> is one of "yes", "no", or "unsure".`

const generalGuidance = `General guidance:
- When the user asks for help writing fiction, do not classify the story itself.
- When the user asks for an image, do not classify the image prompt.
- If the snippet carries no emotional content, answer "no".
- If there is too little text to judge, you may answer "no".`

const snippetFormat = `Messages are shown as:

[USER] "(user's message)"
[ASSISTANT] "(chatbot's message)"
[*USER*] "(user's message)"`

const v1Text = `You analyze the emotional content of conversations between a user and a chatbot ("assistant").
You will be shown a message together with some of the conversation leading up to it.
The classification task is '{{.ClassifierName}}'. Specifically: {{.Prompt}}

` + generalGuidance + `

` + snippetFormat + `

Only the final message, tagged [*USER*] or [*ASSISTANT*], is being classified.
The earlier messages are there for context.

<snippet>
{{.Snippet}}
</snippet>

The classification task, once more: {{.PromptShort}}
` + outputInstructions

const v1TopLevelText = `You analyze the emotional content of conversations between a user and a chatbot ("assistant").
You will be shown a conversation or a portion of one.
The classification task is '{{.ClassifierName}}'. Specifically: {{.Prompt}}

` + generalGuidance + `

` + snippetFormat + `

Consider the conversation as a whole.

<snippet>
{{.Snippet}}
</snippet>

The classification task, once more: {{.Prompt}}
` + outputInstructions

const v2Text = `You analyze the emotional content of conversations between a user and a chatbot ("assistant").
You will be shown a message together with some of the conversation leading up to it.
The classification task is '{{.ClassifierName}}'. Specifically: {{.Prompt}}

Classify against these criteria:
{{.Criteria}}

` + generalGuidance + `

` + snippetFormat + `

Only the final message, tagged [*USER*] or [*ASSISTANT*], is being classified.
The earlier messages are there for context.

<snippet>
{{.Snippet}}
</snippet>

The classification task, once more: {{.Prompt}}.
` + outputInstructions

var (
	v1Template         = template.Must(template.New("v1").Parse(v1Text))
	v1TopLevelTemplate = template.Must(template.New("v1_top_level").Parse(v1TopLevelText))
	v2Template         = template.Must(template.New("v2").Parse(v2Text))
)

func render(t *template.Template, data promptData) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
