// Package model defines the provider-agnostic chat client abstraction used
// by prompt functions, together with the options forwarded to vendor
// adapters and a scripted MockModel for tests and examples.
//
// Core goals:
//   - One blocking call shape for single and multi-completion generation
//   - Optional streaming of the first completion to a writer
//   - Context-aware calls so cancellation and deadlines reach the vendor SDK
//
// Vendor adapters live in sub-packages (openai, anthropic, ollama) so higher
// layers (provider, step) remain decoupled from vendor SDKs.
package model
