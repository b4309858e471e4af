package dataops

import (
	"context"
	"encoding/json"
	"fmt"
)

// CloudTools implements the cloud resource context operations.
type CloudTools struct {
	ws *Workspace
}

// NewCloudTools creates cloud tools over a workspace snapshot.
func NewCloudTools(ws *Workspace) *CloudTools {
	return &CloudTools{ws: ws}
}

// ListResourcesByTagInput selects the tag and optional resource group.
type ListResourcesByTagInput struct {
	TagKey        string `json:"tag_key"`
	TagValue      string `json:"tag_value"`
	ResourceGroup string `json:"resource_group"`
}

// ResourceInfo is one matching resource's metadata.
type ResourceInfo struct {
	ResourceID   string            `json:"resource_id"`
	ResourceName string            `json:"resource_name"`
	ResourceType string            `json:"resource_type"`
	Location     string            `json:"location"`
	Tags         map[string]string `json:"tags"`
}

// ListResourcesByTagOutput lists the matching resources.
type ListResourcesByTagOutput struct {
	Resources []ResourceInfo `json:"resources"`
	Count     int            `json:"count"`
}

// ListResourcesByTag returns the resources carrying the exact tag key and
// value, optionally restricted to one resource group.
func (t *CloudTools) ListResourcesByTag(_ context.Context, raw json.RawMessage) (any, error) {
	var input ListResourcesByTagInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("decoding input: %w", err)
	}
	if input.TagKey == "" {
		return nil, fmt.Errorf("tag_key is required")
	}

	output := ListResourcesByTagOutput{Resources: []ResourceInfo{}}
	for _, resource := range t.ws.Resources {
		if input.ResourceGroup != "" && resource.ResourceGroup != input.ResourceGroup {
			continue
		}
		value, ok := resource.Tags[input.TagKey]
		if !ok || value != input.TagValue {
			continue
		}
		tags := resource.Tags
		if tags == nil {
			tags = map[string]string{}
		}
		output.Resources = append(output.Resources, ResourceInfo{
			ResourceID:   resource.ID,
			ResourceName: resource.Name,
			ResourceType: resource.Type,
			Location:     resource.Location,
			Tags:         tags,
		})
	}
	output.Count = len(output.Resources)
	return output, nil
}
