package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"time"
)

// ApiClient handles API requests to the tool crib server
type ApiClient struct {
	httpClient *http.Client
	BaseURL    string
	Token      string
	UseMock    bool
}

// NewApiClient creates a new API client
func NewApiClient() *ApiClient {
	baseURL := os.Getenv("TOOLCRIB_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	client := &ApiClient{
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
		BaseURL: baseURL,
		Token:   os.Getenv("TOOLCRIB_TOKEN"),
		UseMock: false, // Default to trying the real server first
	}

	// Verify connectivity - if server is not available, use mock data
	if !client.ping() {
		fmt.Printf("Warning: API server at %s is not available. Using mock data.\n", baseURL)
		client.UseMock = true
	}

	return client
}

// ping checks if the API server is available
func (c *ApiClient) ping() bool {
	resp, err := c.httpClient.Get(c.BaseURL + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Asset mirrors the server's asset payload
type Asset struct {
	ID            string   `json:"ID"`
	Name          string   `json:"Name"`
	Category      string   `json:"Category"`
	Zone          string   `json:"Zone"`
	Class         string   `json:"Class"`
	Quantity      int      `json:"Quantity"`
	Available     int      `json:"Available"`
	Condition     string   `json:"Condition"`
	Composition   []string `json:"Composition"`
	MonetaryValue float64  `json:"MonetaryValue"`
}

// AssetListing is one row of the asset list endpoint
type AssetListing struct {
	Asset     Asset `json:"asset"`
	LeakedQty int   `json:"leaked_qty"`
}

// Case mirrors the server's liability case payload
type Case struct {
	ID                string     `json:"ID"`
	ToolID            string     `json:"ToolID"`
	StaffID           string     `json:"StaffID"`
	StaffName         string     `json:"StaffName"`
	Quantity          int        `json:"Quantity"`
	IssuanceType      string     `json:"IssuanceType"`
	IsReturned        bool       `json:"IsReturned"`
	ConditionOnReturn string     `json:"ConditionOnReturn"`
	Stage             string     `json:"Stage"`
	Status            string     `json:"Status"`
	GraceExpiry       *time.Time `json:"GraceExpiry"`
	MonetaryValue     float64    `json:"MonetaryValue"`
	Notes             string     `json:"Notes"`
	Resolution        string     `json:"Resolution"`
	History           []Action   `json:"History"`
}

// Action is one entry in a case's action history
type Action struct {
	Stage     string    `json:"Stage"`
	Actor     string    `json:"Actor"`
	Action    string    `json:"Action"`
	Timestamp time.Time `json:"Timestamp"`
	Notes     string    `json:"Notes"`
}

// CaseAction is the request body for an escalation transition
type CaseAction struct {
	Action            string `json:"action"`
	Notes             string `json:"notes,omitempty"`
	ConditionOnReturn string `json:"condition_on_return,omitempty"`
	Resolution        string `json:"resolution,omitempty"`
	Verdict           string `json:"verdict,omitempty"`
}

func (c *ApiClient) newRequest(method, path string, body []byte) (*http.Request, error) {
	var reader *bytes.Buffer
	if body != nil {
		reader = bytes.NewBuffer(body)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return req, nil
}

// GetAssets retrieves the asset catalog, optionally filtered by zone
func (c *ApiClient) GetAssets(zone string) ([]AssetListing, error) {
	if c.UseMock {
		return c.getMockAssets(zone), nil
	}

	path := "/api/v1/assets"
	if zone != "" {
		path += "?zone=" + zone
	}
	req, err := c.newRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get assets with status code: %d", resp.StatusCode)
	}

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var assets []AssetListing
	if err := json.Unmarshal(body, &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// GetCases retrieves liability cases, optionally for one tool
func (c *ApiClient) GetCases(toolID string) ([]Case, error) {
	if c.UseMock {
		return c.getMockCases(toolID), nil
	}

	path := "/api/v1/cases"
	if toolID != "" {
		path += "?tool_id=" + toolID
	}
	req, err := c.newRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get cases with status code: %d", resp.StatusCode)
	}

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var cases []Case
	if err := json.Unmarshal(body, &cases); err != nil {
		return nil, err
	}
	return cases, nil
}

// GetCase retrieves a specific case by ID
func (c *ApiClient) GetCase(id string) (*Case, error) {
	if c.UseMock {
		return c.getMockCase(id), nil
	}

	req, err := c.newRequest("GET", "/api/v1/cases/"+id, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var k Case
	if err := json.Unmarshal(body, &k); err != nil {
		return nil, err
	}
	return &k, nil
}

// ApplyCaseAction runs one escalation transition on a case
func (c *ApiClient) ApplyCaseAction(id string, action CaseAction) (*Case, error) {
	if c.UseMock {
		k := c.getMockCase(id)
		if k != nil {
			k.Status = "Resolved"
		}
		return k, nil
	}

	data, err := json.Marshal(action)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest("POST", "/api/v1/cases/"+id+"/actions", data)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("action rejected: %s", string(body))
	}

	var updated Case
	if err := json.Unmarshal(body, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Mock data generators
// getMockAssets generates mock catalog data
func (c *ApiClient) getMockAssets(zone string) []AssetListing {
	listings := []AssetListing{
		{
			Asset: Asset{
				ID: "T-100", Name: "Impact Wrench Kit", Category: "Power Tools", Zone: "Bay 1",
				Class: "Toolbox", Quantity: 5, Available: 5, Condition: "Lost",
				Composition:   []string{"Impact Wrench", "Socket A", "Socket B (MISSING)", "Charger"},
				MonetaryValue: 450,
			},
			LeakedQty: 1,
		},
		{
			Asset: Asset{
				ID: "T-200", Name: "Torque Wrench", Category: "Hand Tools", Zone: "Bay 2",
				Class: "Piece", Quantity: 6, Available: 4, Condition: "Good",
				MonetaryValue: 120,
			},
			LeakedQty: 2,
		},
	}
	if zone == "" {
		return listings
	}
	var filtered []AssetListing
	for _, l := range listings {
		if l.Asset.Zone == zone {
			filtered = append(filtered, l)
		}
	}
	return filtered
}

// getMockCases generates mock case data
func (c *ApiClient) getMockCases(toolID string) []Case {
	cases := []Case{
		{
			ID: "case-socket-b", ToolID: "T-100", StaffID: "EMP-002", StaffName: "Sam Fitter",
			Quantity: 1, IssuanceType: "Outstanding", Stage: "Supervisor", Status: "Pending",
			MonetaryValue: 450, Notes: "kit came back from the night shift open",
		},
		{
			ID: "case-wrench", ToolID: "T-200", StaffID: "EMP-003", StaffName: "Lee Welder",
			Quantity: 2, IssuanceType: "Outstanding", Stage: "Manager", Status: "Escalated-to-HR",
			MonetaryValue: 120, Notes: "two wrenches unaccounted after the outage call-out",
		},
	}
	if toolID == "" {
		return cases
	}
	var filtered []Case
	for _, k := range cases {
		if k.ToolID == toolID {
			filtered = append(filtered, k)
		}
	}
	return filtered
}

// getMockCase returns a mock case by ID
func (c *ApiClient) getMockCase(id string) *Case {
	for _, k := range c.getMockCases("") {
		if k.ID == id {
			return &k
		}
	}
	return nil
}
