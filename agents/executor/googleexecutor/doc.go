/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package googleexecutor sends criterion evaluation requests to Gemini models,
through Vertex AI or the Gemini API.

# Usage

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
	    Backend:  genai.BackendVertexAI,
	    Project:  projectID,
	    Location: region,
	})
	if err != nil {
	    return err
	}
	exec, err := googleexecutor.New(client, "gemini-2.5-flash")

The system instruction is sent as the config's SystemInstruction. Request.JSON
sets the response MIME type to application/json. Images are sent as inline
data parts after the prompt text.

# Errors

Errors are returned as *model.Error. genai.APIError codes are classified by
HTTP status. Errors that only carry a message, such as those surfaced by the
Vertex transport, are matched against the quota and overload messages Vertex
is known to return.
*/
package googleexecutor
