// Package services provides cross-cutting helpers shared by pipeline
// collaborators: context annotation keys used for structured logging and
// the error taxonomy used to classify collaborator failures.
package services
