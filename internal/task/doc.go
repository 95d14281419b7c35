// Package task manages background job queuing, processing, and lifecycle.
// It provides mechanisms for asynchronous execution of slow operations like
// notification email delivery, ensuring they don't block HTTP request
// handling and can recover from application restarts. It also hosts the
// scheduler that drives recurring jobs such as the day-before reminder
// sweep and notification purge.
package task
