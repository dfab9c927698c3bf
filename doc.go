// Package veyon implements the configuration-apply core of a remote-desktop
// administration tool: merging hierarchical configuration, toggling service
// autostart and firewall settings, and managing the per-role DSA key pairs
// used to authenticate privileged remote-control sessions.
//
// The authentication subsystem lives in the subpackages: vdef holds the key
// material and role definitions, vauth the key store, trust import and
// credential verification, vstore the configuration store, vsystem the
// OS service control surface and vreport the message reporting surface.
package veyon
