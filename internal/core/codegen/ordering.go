package codegen

import "sort"

// ============================================================================
// Service Ordering
// ============================================================================

// sortServices orders compose services so dependencies come before
// their dependents, using Kahn's algorithm. Ties break on service name
// so output is stable. Cycles cannot arise here because hosting and
// relation edges were validated during planning, but any leftover
// services are appended as a fallback rather than dropped.
func sortServices(services []*composeService) []*composeService {
	if len(services) <= 1 {
		return services
	}

	byName := make(map[string]*composeService, len(services))
	inDegree := make(map[string]int, len(services))
	dependents := make(map[string][]string)

	for _, service := range services {
		byName[service.name] = service
		inDegree[service.name] = 0
	}
	for _, service := range services {
		for _, dep := range service.dependsOn {
			if _, known := byName[dep]; !known {
				continue
			}
			inDegree[service.name]++
			dependents[dep] = append(dependents[dep], service.name)
		}
	}

	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	result := make([]*composeService, 0, len(services))
	seen := make(map[string]bool, len(services))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		result = append(result, byName[name])
		seen[name] = true

		var ready []string
		for _, dependent := range dependents[name] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
		sort.Strings(ready)
		queue = append(queue, ready...)
	}

	if len(result) < len(services) {
		for _, service := range services {
			if !seen[service.name] {
				result = append(result, service)
			}
		}
	}
	return result
}
