package api

import (
	"time"

	"github.com/topdeck-io/topdeck/internal/core/deployment"
	"github.com/topdeck-io/topdeck/internal/core/domain"
	"github.com/topdeck-io/topdeck/internal/core/plan"
)

// =============================================================================
// Response Types
// =============================================================================

// ResourceResponse is one planned resource in API responses.
type ResourceResponse struct {
	Index     string                           `json:"index"`
	Type      string                           `json:"type"`
	Provider  string                           `json:"provider,omitempty"`
	Service   string                           `json:"service,omitempty"`
	Component string                           `json:"component,omitempty"`
	DNSName   string                           `json:"dns_name,omitempty"`
	Status    string                           `json:"status"`
	HostedOn  string                           `json:"hosted_on,omitempty"`
	Hosts     []string                         `json:"hosts,omitempty"`
	Relations map[string]domain.RelationRecord `json:"relations,omitempty"`
	Instance  map[string]any                   `json:"instance,omitempty"`
}

// DeploymentResponse is the API representation of a deployment.
type DeploymentResponse struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Status    string             `json:"status"`
	Resources []ResourceResponse `json:"resources"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// ListDeploymentsResponse pages through deployments.
type ListDeploymentsResponse struct {
	Deployments []DeploymentResponse `json:"deployments"`
	Total       int                  `json:"total"`
	Limit       int                  `json:"limit"`
	Offset      int                  `json:"offset"`
}

// VerifyResponse carries provider verification findings.
type VerifyResponse struct {
	Warnings []plan.Warning `json:"warnings"`
}

// ErrorResponse is the error response format.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the readiness check response.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// =============================================================================
// Conversions
// =============================================================================

func deploymentToResponse(dep *deployment.Deployment) DeploymentResponse {
	resp := DeploymentResponse{
		ID:        dep.ID,
		Name:      dep.Name,
		Status:    string(dep.Status),
		Resources: make([]ResourceResponse, 0, len(dep.Resources)),
		CreatedAt: dep.CreatedAt,
		UpdatedAt: dep.UpdatedAt,
	}
	for index, resource := range dep.Resources {
		hosts := make([]string, 0, len(resource.Hosts))
		for _, host := range resource.Hosts {
			hosts = append(hosts, string(host))
		}
		resp.Resources = append(resp.Resources, ResourceResponse{
			Index:     string(index),
			Type:      resource.Type,
			Provider:  resource.Provider,
			Service:   resource.Service,
			Component: resource.Component,
			DNSName:   resource.DNSName,
			Status:    string(resource.Status),
			HostedOn:  string(resource.HostedOn),
			Hosts:     hosts,
			Relations: resource.Relations,
			Instance:  resource.Instance,
		})
	}
	sortResources(resp.Resources)
	return resp
}
