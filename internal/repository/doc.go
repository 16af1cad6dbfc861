// Package repository defines persistent storage for the parts of the
// system that outlive a restart: the device sighting history and
// operator-edited mapping overrides. The in-memory fusion state is
// deliberately excluded; it is derived and fully recomputable.
package repository
