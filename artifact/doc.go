// Package artifact manages versioned prompt artifacts and their promotion
// through lifecycle stages.
//
// An artifact is identified on disk as
//
//	<base>_<stage>_v<major>.<minor>.<patch>.<ext>
//
// where stage is one of raw, templ, config, active. Stages are ordered;
// promotion moves an artifact one stage forward (config may be skipped by
// policy) and bumps its version: a major bump when the destination is
// active, a patch bump otherwise. The move itself is delegated to a
// store.Store and is atomic per destination, so a failed promotion leaves
// the artifact untouched at its old location.
package artifact
