// Package services holds the enrollment verification logic.
//
// Services defined in this package:
// - ReconciliationService: turns a submitted enrollment into canonical student records
// - IdentityService: finds or creates the student identity of an enrollment
// - EntityUpserter: writes one record per student and kind
// - AggregateService: loads and saves the merged per-student view
// - DocumentService: locates uploaded documents and signs links to them
package services
