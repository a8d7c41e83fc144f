/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package openaiexecutor sends criterion evaluation requests to an
OpenAI-compatible chat completions endpoint, by default GitHub Models.

# Usage

	client := openaiexecutor.NewGitHubModelsClient(os.Getenv("GITHUB_TOKEN"))
	exec, err := openaiexecutor.New(client, "gpt-4o")
	if err != nil {
		return err
	}
	resp, err := exec.Complete(ctx, model.Request{
		System:      "You are an expert instructor...",
		Prompt:      prompt,
		Temperature: 0.3,
		MaxTokens:   2000,
		JSON:        true,
	})

Images in the request are sent as data URI image parts after the prompt text.
Errors are returned as *model.Error, classified from the HTTP status of the
SDK's *openai.Error.
*/
package openaiexecutor
