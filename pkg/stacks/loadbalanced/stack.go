// Package loadbalanced declares a load balanced application: an autoscaling group of web servers in
// an existing network, behind an internet facing application load balancer.
package loadbalanced

import (
	"errors"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/klothoplatform/stackplan/pkg/construct"
	"github.com/klothoplatform/stackplan/pkg/resolver"
)

// Construct names of the stack. Node ids are derived from them with NodeID.
const (
	NetworkName        = "defaultVpc"
	SecurityGroupName  = "securityGroup"
	RoleName           = "roleForSSM"
	LaunchTemplateName = "LaunchTemplate"
	AutoscalingName    = "autoscalingGroup"
	LoadBalancerName   = "applicationLoadBalacner"
	ListenerName       = "listner"
	TargetGroupName    = "ApplicationFleet"
)

type Options struct {
	VpcID        string
	InstanceType string
	ImageID      string
	// IngressCIDR is the range allowed to reach the instances directly on Port.
	IngressCIDR string
	Port        int
	UserData    []string
}

func DefaultOptions() Options {
	return Options{
		VpcID:        "vpc-0135f48050139fb77",
		InstanceType: "t2.micro",
		ImageID:      "resolve:ssm:/aws/service/ami-amazon-linux-latest/amzn2-ami-hvm-x86_64-gp2",
		IngressCIDR:  "0.0.0.0/0",
		Port:         80,
		UserData: []string{
			"yum update -y",
			"yum install -y httpd.x86_64",
			"service httpd start",
			"echo “Hello World from $(hostname -f)” > /var/www/html/index.html",
		},
	}
}

// withDefaults fills the zero fields of o from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.VpcID == "" {
		o.VpcID = d.VpcID
	}
	if o.InstanceType == "" {
		o.InstanceType = d.InstanceType
	}
	if o.ImageID == "" {
		o.ImageID = d.ImageID
	}
	if o.IngressCIDR == "" {
		o.IngressCIDR = d.IngressCIDR
	}
	if o.Port == 0 {
		o.Port = d.Port
	}
	if o.UserData == nil {
		o.UserData = d.UserData
	}
	return o
}

func NodeID(constructName string) string {
	return strcase.ToKebab(constructName)
}

func ref(constructName, attr string) construct.PropertyRef {
	return construct.PropertyRef{Resource: NodeID(constructName), Property: attr}
}

// IngressID is the id of the rule letting the load balancer reach the instances.
var IngressID = NodeID(AutoscalingName) + "-from-" + NodeID(LoadBalancerName)

// Declare adds the stack's resources to g in the order they are declared in the stack.
func Declare(g *resolver.Graph, opts Options) error {
	opts = opts.withDefaults()
	vpcID := ref(NetworkName, "id")

	nodes := []*construct.Resource{
		construct.CreateResource(NodeID(NetworkName), construct.KindNetwork).
			SetProperty("id", opts.VpcID),

		construct.CreateResource(NodeID(SecurityGroupName), construct.KindSecurityGroup).
			SetProperty("vpcId", vpcID).
			SetProperty("allowAllOutbound", true).
			SetProperty("ingress", []construct.IngressRule{{
				Protocol:    "tcp",
				Port:        opts.Port,
				SourceCIDR:  opts.IngressCIDR,
				Description: "Added by a CDK stack",
			}}),

		construct.CreateResource(NodeID(RoleName), construct.KindRole).
			SetProperty("assumedBy", "ec2.amazonaws.com").
			SetProperty("managedPolicies", []any{"AmazonSSMManagedInstanceCore"}),

		construct.CreateResource(NodeID(LaunchTemplateName), construct.KindLaunchTemplate).
			SetProperty("imageId", opts.ImageID).
			SetProperty("instanceType", opts.InstanceType).
			SetProperty("securityGroupId", ref(SecurityGroupName, "id")).
			SetProperty("roleArn", ref(RoleName, "arn")).
			SetProperty("userData", UserData(opts.UserData...)),

		construct.CreateResource(NodeID(AutoscalingName), construct.KindAutoscalingGroup).
			SetProperty("vpcId", vpcID).
			SetProperty("launchTemplateId", ref(LaunchTemplateName, "id")).
			SetProperty("minSize", 1).
			SetProperty("maxSize", 1),

		construct.CreateResource(NodeID(LoadBalancerName), construct.KindLoadBalancer).
			SetProperty("vpcId", vpcID).
			SetProperty("internetFacing", true),

		construct.CreateResource(NodeID(ListenerName), construct.KindListener).
			SetProperty("loadBalancerArn", ref(LoadBalancerName, "arn")).
			SetProperty("port", opts.Port).
			SetProperty("protocol", "HTTP"),

		construct.CreateResource(NodeID(TargetGroupName), construct.KindTargetGroup).
			SetProperty("vpcId", vpcID).
			SetProperty("listenerArn", ref(ListenerName, "arn")).
			SetProperty("port", opts.Port).
			SetProperty("targets", []any{ref(AutoscalingName, "arn")}).
			SetProperty("healthCheckPath", "/").
			SetProperty("healthCheckInterval", "1m"),

		construct.CreateResource(IngressID, construct.KindSecurityGroupIngress).
			SetProperty("groupId", ref(SecurityGroupName, "id")).
			SetProperty("sourceSecurityGroupId", ref(LoadBalancerName, "securityGroupId")).
			SetProperty("protocol", "tcp").
			SetProperty("port", opts.Port).
			SetProperty("description", "Load balancer to target"),
	}

	var errs error
	for _, n := range nodes {
		errs = errors.Join(errs, g.AddNode(n))
	}
	return errs
}

// UserData renders bootstrap commands as a shell script. The result is opaque to the resolver.
func UserData(commands ...string) string {
	return "#!/bin/bash\n" + strings.Join(commands, "\n")
}
