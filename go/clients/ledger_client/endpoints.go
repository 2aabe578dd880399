package ledger_client

// HealthEndpoint answers "OK" while the ledger server is up.
const HealthEndpoint = "/health"
