// Package manager owns the single model slot of the service: loading and
// reloading the fine-tuned checkpoint, admitting generation requests and
// running training. It is structured into small files by concern:
//
//   - manager.go: Service type, constructor, state getters.
//   - config.go: Config and package defaults.
//   - types.go: State and StatusReport.
//   - errors.go: LoadError, GenerationError and classification helpers.
//   - load.go: Load, Reload, EnsureLoaded and Close.
//   - admission.go: the generation gate for engines that sample serially.
//   - generate.go: the validate, sample and clean pipeline.
//   - train.go: fine-tuning with resume policy.
//   - metrics.go: Prometheus instruments for loads and generations.
package manager
